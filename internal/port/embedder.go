package port

// Embedder generates vector embeddings for text. Corpus and query encoding
// must go through the same Embedder instance: vectors from different models
// live in different spaces and their similarities are meaningless.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per input,
	// in input order. An empty input yields an empty result, not an error.
	Embed(texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
