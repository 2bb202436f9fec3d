package embeddings

import "testing"

// TestEmbedderInterface verifies that Service and FastEmbedProvider satisfy
// Embedder. This fails to compile if either drifts from the interface.
func TestEmbedderInterface(t *testing.T) {
	var _ Embedder = (*Service)(nil)
	var _ Embedder = (*FastEmbedProvider)(nil)
	t.Log("Service and FastEmbedProvider correctly implement the Embedder interface")
}
