package retriever

import (
	"fmt"
	"math"
	"sort"

	"lecturmate/internal/domain"
	"lecturmate/internal/port"
)

// Cosine ranks chunks by cosine similarity between the query embedding and
// the index's embedding matrix. Brute force over the in-memory matrix; the
// computation is pure and local, so there is nothing to retry.
type Cosine struct {
	embedder port.Embedder
}

func NewCosine(embedder port.Embedder) *Cosine {
	return &Cosine{embedder: embedder}
}

// Search returns the top k chunks in descending score order. Ties keep
// corpus order: the earlier chunk wins, deterministically.
func (r *Cosine) Search(query string, idx *domain.Index, k int) ([]domain.ScoredChunk, error) {
	if idx.Empty() {
		return nil, domain.ErrEmptyIndex
	}
	if len(idx.Vectors) != len(idx.Chunks) {
		return nil, fmt.Errorf("index misaligned: %d chunks, %d vectors", len(idx.Chunks), len(idx.Vectors))
	}
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}

	vecs, err := r.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	queryVec := vecs[0]

	scored := make([]domain.ScoredChunk, len(idx.Chunks))
	for i, vec := range idx.Vectors {
		scored[i] = domain.ScoredChunk{
			Chunk: idx.Chunks[i],
			Score: cosineSimilarity(queryVec, vec),
		}
	}

	// Stable sort over the index-ordered slice: equal scores stay in
	// ascending chunk-index order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// cosineSimilarity is the normalized dot product of two vectors, in [-1, 1].
// A zero vector has no direction and scores 0 against everything.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
