package ingest

import (
	"fmt"
	"os"
	"strings"

	"lecturmate/internal/domain"
)

// Text reads a plain-text file as-is.
type Text struct{}

func NewText() *Text { return &Text{} }

func (t *Text) Kind() domain.SourceKind { return domain.SourceText }

func (t *Text) Ingest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// collapseWhitespace folds runs of whitespace (page breaks, transcript line
// wraps) into single spaces, leaving plain prose for the chunker.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
