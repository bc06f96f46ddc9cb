// Package embedding generates vector embeddings for Ghost's semantic
// memory. The only supported backend is a local Ollama server; when it is
// unavailable the planner simply runs without the RAG context.
package embedding

import "context"

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of produced embeddings.
	Dimensions() int

	// Name returns the engine name for logging.
	Name() string
}
