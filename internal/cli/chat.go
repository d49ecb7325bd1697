package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lecturmate/internal/domain"
)

const contextPreviewLen = 100

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering session",
	Long: `Start an interactive loop over the added material. Each answer shows a
preview of its best supporting chunk with a confidence score. Type 'exit'
to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	session, closer, err := newSession()
	if err != nil {
		return err
	}
	defer closer()

	st := session.Stats()
	if st.Sources == 0 {
		return fmt.Errorf("no material in the session. Run 'lecturmate add' first")
	}
	fmt.Printf("Loaded %d sources (%d chunks). Type 'exit' to quit.\n\n", st.Sources, st.Chunks)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return nil
		}

		started := time.Now()
		answer, err := session.Ask(query)
		if errors.Is(err, domain.ErrNoSources) {
			return fmt.Errorf("session is empty")
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		elapsed := time.Since(started)

		if answer.Degraded {
			fmt.Println("\n(model unavailable, showing the most relevant material)")
			for _, sc := range answer.Context {
				fmt.Printf("  %s\n", sc.Chunk.Text)
			}
		} else {
			fmt.Printf("\n%s\n", answer.Text)
		}

		if len(answer.Context) > 0 {
			top := answer.Context[0]
			fmt.Printf("\n[context: %q  confidence: %.2f  took: %.1fs]\n\n",
				preview(top.Chunk.Text), top.Score, elapsed.Seconds())
		}
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= contextPreviewLen {
		return text
	}
	return string(runes[:contextPreviewLen]) + "…"
}
