package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lecturmate/internal/domain"
)

var (
	askQuery   string
	askTopK    int
	askJSON    bool
	askContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a single question about the added material",
	Long: `Retrieve the most relevant chunks for the question and generate an
answer grounded only in them.

Examples:
  lecturmate ask -q "When did badminton join the Olympics?"
  lecturmate ask -q "What is a shuttlecock?" --top-k 5 --context`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of context chunks (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askContext, "context", false, "show the retrieved context")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askTopK > 0 {
		cfg.Retrieve.TopK = askTopK
	}

	session, closer, err := newSession()
	if err != nil {
		return err
	}
	defer closer()

	answer, err := session.Ask(askQuery)
	if errors.Is(err, domain.ErrNoSources) {
		return fmt.Errorf("no material in the session. Run 'lecturmate add' first")
	}
	if err != nil {
		return err
	}

	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printAnswer(answer, askContext)
	return nil
}

func printAnswer(answer domain.Answer, showContext bool) {
	if answer.Degraded {
		fmt.Println("The model is unavailable; here is the most relevant material instead:")
		fmt.Println()
		showContext = true
	} else {
		fmt.Println(answer.Text)
	}

	if showContext && len(answer.Context) > 0 {
		fmt.Println()
		for i, sc := range answer.Context {
			fmt.Printf("--- [%d] chunk %d (score: %.2f) ---\n", i+1, sc.Chunk.Index, sc.Score)
			fmt.Println(sc.Chunk.Text)
		}
	}
}
