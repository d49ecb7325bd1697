package chunker

import (
	"fmt"

	"lecturmate/internal/domain"
)

// WindowChunker splits text into fixed-size rune windows, each overlapping
// its predecessor by a fixed amount. Pure and deterministic: the same input
// always yields the same chunks.
type WindowChunker struct {
	size    int
	overlap int
}

// New validates the window parameters up front. overlap >= size would stop
// the window from advancing and loop forever; both cases are rejected with
// ErrInvalidChunkConfig rather than clamped.
func New(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w (size=%d)", domain.ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", domain.ErrInvalidChunkConfig, size, overlap)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk windows text into overlapping chunks. Consecutive chunks share
// exactly overlap runes; the final chunk may be shorter than the window
// size. Empty text yields no chunks.
func (c *WindowChunker) Chunk(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})
	}
	return chunks
}

func (c *WindowChunker) Size() int { return c.size }

func (c *WindowChunker) Overlap() int { return c.overlap }
