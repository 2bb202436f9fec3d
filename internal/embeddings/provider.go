package embeddings

import (
	"fmt"
	"strings"
)

// Provider is an Embedder that additionally knows its vector dimensionality
// and owns resources that must be released.
type Provider interface {
	Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed" or "http".
	Provider string
	// Model is the embedding model name.
	Model string
	// BaseURL is the external service URL (only used by the "http" provider).
	BaseURL string
	// CacheDir is the model cache directory (only used by "fastembed").
	CacheDir string
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if the model is unknown.
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "small"), strings.Contains(model, "mini"):
		return 384
	default:
		return 384 // safe default for bge-small
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "http":
		svc, err := NewService(Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		dim := detectDimensionFromModel(cfg.Model)
		return &httpProvider{Service: svc, dimension: dim}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// httpProvider wraps Service to implement Provider.
type httpProvider struct {
	*Service
	dimension int
}

// Dimension returns the embedding dimension based on the configured model.
func (p *httpProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op for the HTTP provider; it holds no resources beyond a
// stdlib HTTP client.
func (p *httpProvider) Close() error {
	return nil
}
