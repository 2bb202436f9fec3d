package embeddings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ProviderConfig
		wantError bool
	}{
		{
			name: "http provider with valid config",
			cfg: ProviderConfig{
				Provider: "http",
				BaseURL:  "http://localhost:8080",
				Model:    "BAAI/bge-small-en-v1.5",
			},
			wantError: false,
		},
		{
			name: "http provider without base URL",
			cfg: ProviderConfig{
				Provider: "http",
				Model:    "BAAI/bge-small-en-v1.5",
			},
			wantError: true,
		},
		{
			name: "unknown provider",
			cfg: ProviderConfig{
				Provider: "unknown",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if provider != nil {
				require.NoError(t, provider.Close())
			}
		})
	}
}

func TestNewProvider_FastEmbed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); os.IsNotExist(err) {
		if os.Getenv("ONNX_PATH") == "" {
			t.Skip("ONNX runtime not available")
		}
	}

	cfg := ProviderConfig{Provider: "fastembed", Model: "BAAI/bge-small-en-v1.5"}

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	defer provider.Close()

	require.Equal(t, 384, provider.Dimension())
}

func TestNewProvider_DefaultToFastEmbed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); os.IsNotExist(err) {
		if os.Getenv("ONNX_PATH") == "" {
			t.Skip("ONNX runtime not available")
		}
	}

	cfg := ProviderConfig{Provider: "", Model: "BAAI/bge-small-en-v1.5"}

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	defer provider.Close()

	require.Equal(t, 384, provider.Dimension())
}

func TestHTTPProvider_Dimension(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantDim int
	}{
		{"small model", "BAAI/bge-small-en-v1.5", 384},
		{"base model", "BAAI/bge-base-en-v1.5", 768},
		{"mini model", "sentence-transformers/all-MiniLM-L6-v2", 384},
		{"unknown defaults to 384", "unknown-model", 384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ProviderConfig{Provider: "http", BaseURL: "http://localhost:8080", Model: tt.model}

			provider, err := NewProvider(cfg)
			require.NoError(t, err)
			defer provider.Close()

			require.Equal(t, tt.wantDim, provider.Dimension())
		})
	}
}

func TestNewProvider_InvalidModel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}

	cfg := ProviderConfig{Provider: "fastembed", Model: "nonexistent-model"}

	_, err := NewProvider(cfg)
	require.Error(t, err)
}
