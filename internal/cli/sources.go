package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lecturmate/config"
	"lecturmate/internal/adapter/store"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the material in the session",
	RunE:  runSources,
}

var removeCmd = &cobra.Command{
	Use:   "remove [source ID]",
	Short: "Remove a source and rebuild the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all sources and the chat transcript",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(resetCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	session, closer, err := newSession()
	if err != nil {
		return err
	}
	defer closer()

	sources := session.Sources()
	if len(sources) == 0 {
		fmt.Println("No sources. Add material with 'lecturmate add'.")
		return nil
	}

	for _, src := range sources {
		fmt.Printf("%s  %-8s %s (%d chars, added %s)\n",
			src.ID, src.Kind, src.Label, len(src.Text), src.AddedAt.Format("2006-01-02 15:04"))
	}
	printStats(session)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	session, closer, err := newSession()
	if err != nil {
		return err
	}
	defer closer()
	attachProgress(session)

	if err := session.RemoveSource(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", args[0])
	printStats(session)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !cfg.Session.Persist {
		fmt.Println("Session persistence is disabled; nothing to clear.")
		return nil
	}

	path := cfg.Session.Path
	if path == "" {
		path = config.SessionDBPath(rootDir)
	}

	// Open the store directly instead of wiring a full session: reset must
	// work even when the stored snapshot was built by a different embedding
	// model and restoring it would be refused.
	if err := resetStore(path); err != nil {
		return err
	}
	fmt.Println("Session cleared.")
	return nil
}

func resetStore(path string) error {
	st, err := store.NewBoltStore(path)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()
	return st.Reset()
}
