package embeddings

import "context"

// Embedder is the external text-to-vector boundary. Implementations must be
// deterministic and pure for a fixed model: identical input text always
// yields an identical vector. Callers are responsible for caching; this
// interface makes no guarantees about latency.
type Embedder interface {
	// EmbedDocuments embeds a batch of passage texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
