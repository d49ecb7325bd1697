package domain

import "errors"

var (
	// ErrInvalidChunkConfig rejects window parameters that violate
	// 0 <= overlap < size, which would stall or degenerate the chunker.
	ErrInvalidChunkConfig = errors.New("invalid chunking config: overlap must be >= 0 and < size")

	// ErrEmptyIndex means a search ran against an index with no chunks.
	ErrEmptyIndex = errors.New("index contains no chunks")

	// ErrNoSources means the user asked a question before adding any source.
	ErrNoSources = errors.New("no sources loaded")

	// ErrModelUnavailable means the embedding model cannot be reached;
	// nothing in the pipeline works without it.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrModelMismatch means a persisted snapshot was built with a different
	// embedding model than the one configured; its vectors are not comparable.
	ErrModelMismatch = errors.New("snapshot built with a different embedding model")

	// ErrSourceNotFound means a remove targeted an unknown source ID.
	ErrSourceNotFound = errors.New("source not found")
)
