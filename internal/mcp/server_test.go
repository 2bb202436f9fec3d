package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danilop/total-recall/internal/recall"
	"github.com/danilop/total-recall/internal/recall/index"
	"github.com/danilop/total-recall/internal/recall/loader"
	"github.com/danilop/total-recall/internal/recall/query"
)

type emptyCLI struct{}

func (emptyCLI) Read(string) ([]recall.Session, error) { return nil, nil }

type emptyIDE struct{}

func (emptyIDE) Read([]string) ([]recall.Session, error) { return nil, nil }

// constEmbedder returns a fixed-dimension zero vector for every text, enough
// to exercise server construction without a real model.
type constEmbedder struct{ dimension int }

func (e constEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, e.dimension)
	}
	return vectors, nil
}

func (e constEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, e.dimension), nil
}

func newTestEngine(t *testing.T) *query.Engine {
	t.Helper()
	ld := loader.New(emptyCLI{}, emptyIDE{}, loader.Config{}, nil)
	idx := index.New(constEmbedder{dimension: 4}, ld, index.Config{
		Model:     "test-model",
		Dimension: 4,
		CacheDir:  t.TempDir(),
		Budget:    index.MemoryBudget{NoLimit: true},
	})
	return query.New(idx, constEmbedder{dimension: 4})
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
}

func TestNewServer_AppliesDefaultConfig(t *testing.T) {
	s, err := NewServer(nil, newTestEngine(t))
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NotNil(t, s.logger)
}

func TestNewServer_NilLoggerFallsBackToNop(t *testing.T) {
	s, err := NewServer(&Config{Name: "x", Version: "1"}, newTestEngine(t))
	require.NoError(t, err)
	require.NotNil(t, s.logger)
}
