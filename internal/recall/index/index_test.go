package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danilop/total-recall/internal/recall"
	"github.com/danilop/total-recall/internal/recall/loader"
)

type stubCLI struct {
	sessions []recall.Session
}

func (s *stubCLI) Read(string) ([]recall.Session, error) { return s.sessions, nil }

type stubIDE struct{}

func (stubIDE) Read([]string) ([]recall.Session, error) { return nil, nil }

type stubEmbedder struct {
	dimension int
	calls     int
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.dimension)
		v[0] = float32(len(texts[i]))
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func session(id string, messages ...recall.Message) recall.Session {
	return recall.Session{ID: id, Source: recall.SourceCLI, Messages: messages}
}

func msg(sessionID string, ordinal int, content string, t time.Time) recall.Message {
	return recall.Message{
		Role: recall.RoleUser, Content: content, Timestamp: t,
		Source: recall.SourceCLI, SessionID: sessionID, Ordinal: ordinal,
	}
}

func newTestIndex(t *testing.T, cli *stubCLI, embedder *stubEmbedder) *Index {
	t.Helper()
	ld := loader.New(cli, stubIDE{}, loader.Config{CLIEnabled: true, CLIPaths: []string{"db"}, MaxContentSize: 4096}, nil)
	return New(embedder, ld, Config{
		Model: "test-model", Dimension: embedder.dimension, CacheDir: t.TempDir(),
		Budget: MemoryBudget{NoLimit: true},
	})
}

func TestRefresh_BuildsSnapshotAndEmbedsOnce(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "hello world", now)),
	}}
	embedder := &stubEmbedder{dimension: 4}
	idx := newTestIndex(t, cli, embedder)

	snap, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	require.Equal(t, 1, embedder.calls)

	snap2, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Same(t, snap, snap2, "unchanged corpus must not trigger a rebuild")
	require.Equal(t, 1, embedder.calls, "embedder must not be called again")
}

func TestRefresh_NewSessionOnlyEmbedsNewContent(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "hello world", now)),
	}}
	embedder := &stubEmbedder{dimension: 4}
	idx := newTestIndex(t, cli, embedder)

	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)

	cli.sessions = append(cli.sessions, session("s2", msg("s2", 0, "new message", now.Add(time.Minute))))
	snap, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	require.Equal(t, 2, embedder.calls, "only the new session's content should be embedded")
}

func TestStats_BeforeRefreshIsZeroValue(t *testing.T) {
	idx := newTestIndex(t, &stubCLI{}, &stubEmbedder{dimension: 4})
	stats := idx.Stats()
	require.True(t, stats.LastRefresh.IsZero())
	require.Equal(t, int64(0), stats.CacheHits)
	require.Equal(t, int64(0), stats.CacheMisses)
	require.Equal(t, 0.0, stats.CacheHitRate())
}

func TestStats_TracksHitsMissesAndLastRefresh(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "hello world", now)),
	}}
	idx := newTestIndex(t, cli, &stubEmbedder{dimension: 4})

	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	stats := idx.Stats()
	require.Equal(t, int64(0), stats.CacheHits)
	require.Equal(t, int64(1), stats.CacheMisses)
	require.False(t, stats.LastRefresh.IsZero())

	cli.sessions = append(cli.sessions, session("s2", msg("s2", 0, "second message", now.Add(time.Minute))))
	_, err = idx.Refresh(context.Background())
	require.NoError(t, err)
	stats = idx.Stats()
	require.Equal(t, int64(1), stats.CacheHits, "the unchanged message from s1 is a hit on the second refresh")
	require.Equal(t, int64(2), stats.CacheMisses, "misses accumulate across refreshes")
	require.InDelta(t, 1.0/3.0, stats.CacheHitRate(), 1e-9)
}

func TestStats_ReportsMemoryBudgetUsage(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "hello world", now)),
	}}
	ld := loader.New(cli, stubIDE{}, loader.Config{CLIEnabled: true, CLIPaths: []string{"db"}, MaxContentSize: 4096}, nil)
	idx := New(&stubEmbedder{dimension: 4}, ld, Config{
		Model: "test-model", Dimension: 4, CacheDir: t.TempDir(),
		Budget: MemoryBudget{LimitBytes: 1 << 20},
	})

	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)

	stats := idx.Stats()
	require.False(t, stats.BudgetNoLimit)
	require.Equal(t, int64(1<<20), stats.BudgetLimitBytes)
	require.Equal(t, footprintBytes(1, 4), stats.BudgetUsedBytes)
}

func TestRefresh_VectorsAreUnitNorm(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "some content", now)),
	}}
	idx := newTestIndex(t, cli, &stubEmbedder{dimension: 4})

	snap, err := idx.Refresh(context.Background())
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range snap.Vectors[0] {
		sumSquares += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sumSquares, 1e-6)
}

func TestRefresh_PersistsAcrossIndexInstances(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "persisted content", now)),
	}}
	cacheDir := t.TempDir()
	embedder := &stubEmbedder{dimension: 4}

	ld := loader.New(cli, stubIDE{}, loader.Config{CLIEnabled: true, CLIPaths: []string{"db"}, MaxContentSize: 4096}, nil)
	idx1 := New(embedder, ld, Config{Model: "test-model", Dimension: 4, CacheDir: cacheDir, Budget: MemoryBudget{NoLimit: true}})
	_, err := idx1.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)

	ld2 := loader.New(cli, stubIDE{}, loader.Config{CLIEnabled: true, CLIPaths: []string{"db"}, MaxContentSize: 4096}, nil)
	idx2 := New(embedder, ld2, Config{Model: "test-model", Dimension: 4, CacheDir: cacheDir, Budget: MemoryBudget{NoLimit: true}})
	_, err = idx2.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls, "a fresh index should reuse the persisted cache")
}

func TestRefresh_GarbageCollectsUnreferencedHashes(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "original content", now)),
	}}
	idx := newTestIndex(t, cli, &stubEmbedder{dimension: 4})
	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.cache.Vectors, 1)

	cli.sessions = []recall.Session{session("s1", msg("s1", 0, "replaced content", now))}
	_, err = idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.cache.Vectors, 1, "the old content hash should have been collected")
}

func TestRefresh_EmbedderErrorKeepsPreviousSnapshot(t *testing.T) {
	now := time.Now()
	cli := &stubCLI{sessions: []recall.Session{
		session("s1", msg("s1", 0, "first", now)),
	}}
	idx := newTestIndex(t, cli, &stubEmbedder{dimension: 4})
	first, err := idx.Refresh(context.Background())
	require.NoError(t, err)

	cli.sessions = append(cli.sessions, session("s2", msg("s2", 0, "second", now.Add(time.Minute))))
	idx.embedder = failingEmbedder{}

	second, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second, "a failed refresh keeps serving the last good snapshot")
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding service unavailable")
}

func (failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding service unavailable")
}

func TestEnforceBudget_EvictsOldestSessionsWhenOverLimit(t *testing.T) {
	now := time.Now()
	idx := &Index{config: Config{Dimension: 10}}
	old := session("old", msg("old", 0, "x", now.Add(-time.Hour)))
	recent := session("recent", msg("recent", 0, "y", now))

	// Each session costs 168 bytes at this dimension; two sessions need 336,
	// one session fits in 200.
	idx.config.Budget = MemoryBudget{LimitBytes: 200}
	included, excluded := idx.enforceBudget([]recall.Session{old, recent})
	require.Len(t, excluded, 1)
	require.Equal(t, "old", excluded[0].ID)
	require.Len(t, included, 1)
	require.Equal(t, "recent", included[0].ID)
}

func TestEnforceBudget_NoLimitKeepsEverything(t *testing.T) {
	idx := &Index{config: Config{Budget: MemoryBudget{NoLimit: true}}}
	sessions := []recall.Session{session("a"), session("b")}
	included, excluded := idx.enforceBudget(sessions)
	require.Len(t, included, 2)
	require.Empty(t, excluded)
}
