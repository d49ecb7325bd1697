package cli

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"lecturmate/internal/adapter/ingest"
	"lecturmate/internal/port"
	"lecturmate/internal/usecase"
)

var addYouTube bool

var addCmd = &cobra.Command{
	Use:   "add [paths or globs...]",
	Short: "Add lecture material to the session",
	Long: `Add text files, PDFs or YouTube transcripts to the session. Every add
re-chunks and re-embeds the corpus, so the first question afterwards
reflects all material.

Examples:
  lecturmate add notes.txt
  lecturmate add 'lectures/**/*.pdf'
  lecturmate add --youtube 'https://www.youtube.com/watch?v=jNQXAC9IVRw'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().BoolVar(&addYouTube, "youtube", false, "treat arguments as YouTube URLs or video IDs")
}

func runAdd(cmd *cobra.Command, args []string) error {
	session, closer, err := newSession()
	if err != nil {
		return err
	}
	defer closer()
	attachProgress(session)

	if addYouTube {
		return addVideos(session, args)
	}
	return addFiles(session, args)
}

func addVideos(session *usecase.Session, urls []string) error {
	yt := ingest.NewYouTube()
	for _, url := range urls {
		src, err := session.AddSource(yt, url, "")
		if err != nil {
			return err
		}
		fmt.Printf("Added transcript %s (%d chars)\n", src.Label, len(src.Text))
	}
	printStats(session)
	return nil
}

func addFiles(session *usecase.Session, args []string) error {
	walker := ingest.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	paths, err := walker.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}

	for _, path := range paths {
		src, err := session.AddSource(ingestorFor(path), path, path)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%d chars)\n", src.Label, len(src.Text))
	}
	printStats(session)
	return nil
}

func ingestorFor(path string) port.Ingestor {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return ingest.NewPDF()
	}
	return ingest.NewText()
}

// attachProgress shows a bar while the corpus is re-embedded; embedding is
// by far the slowest part of an add.
func attachProgress(session *usecase.Session) {
	var bar *progressbar.ProgressBar
	lastTotal := -1
	session.SetProgress(func(done, total int) {
		if bar == nil || total != lastTotal {
			bar = progressbar.Default(int64(total), "embedding")
			lastTotal = total
		}
		bar.Set(done)
	})
}

func printStats(session *usecase.Session) {
	st := session.Stats()
	fmt.Printf("Session: %d sources, %d chunks, %d chars\n", st.Sources, st.Chunks, st.CorpusLen)
}
