package embedding

// Mock is a deterministic in-process embedder for tests: each rune of the
// input contributes to one vector position, so identical texts always get
// identical vectors and their cosine self-similarity is exactly 1.
type Mock struct {
	dimension int
}

func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

func (m *Mock) Embed(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dimension)
		for j, r := range []rune(text) {
			if j >= m.dimension {
				break
			}
			vec[j] = float32(r) / 1000.0
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (m *Mock) Dimension() int { return m.dimension }

func (m *Mock) ModelName() string { return "mock" }
