package port

import "lecturmate/internal/domain"

// Retriever ranks index chunks against a query and returns the top k.
type Retriever interface {
	// Search returns min(k, len(idx.Chunks)) results in descending score
	// order. Searching an empty index is an error.
	Search(query string, idx *domain.Index, k int) ([]domain.ScoredChunk, error)
}
