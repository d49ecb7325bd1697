package port

// Generator produces an answer to a question grounded in retrieved context.
// It crosses a network boundary and may fail; callers must treat a failure
// as degradation, never as corruption of the index.
type Generator interface {
	// Generate answers the query using only the provided context text.
	Generate(query, context string) (string, error)

	// ModelName returns the name of the generation model.
	ModelName() string
}
