// Package embedder provides interfaces and implementations for text embedding.
//
// The embedding model is chosen per request from the registry in
// internal/models, so implementations take the provider-facing model name as
// a parameter instead of binding one model per client.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// EmbedBatch embeds every text in one logical batch and returns vectors
	// positionally aligned with the input: vector i embeds texts[i],
	// regardless of the order the provider answered in.
	EmbedBatch(ctx context.Context, texts []string, model string) ([][]float32, error)
}
