// Package index maintains the content-addressed embedding cache and the
// immutable snapshots served to concurrent queries. It is the heart of the
// system: incremental embedding, atomic on-disk persistence, and
// session-granularity memory-budget eviction all live here.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/danilop/total-recall/internal/embeddings"
	"github.com/danilop/total-recall/internal/recall"
	"github.com/danilop/total-recall/internal/recall/loader"
)

const embedBatchSize = 64

// MemoryBudget configures the footprint limit enforced by the index.
type MemoryBudget struct {
	LimitBytes int64 // explicit limit; takes precedence over Fraction when > 0
	Fraction   float64
	NoLimit    bool
}

// Config configures an Index.
type Config struct {
	Model     string
	Dimension int
	CacheDir  string
	Budget    MemoryBudget
	// LockTimeout bounds how long a save waits on the cross-process cache
	// lock before giving up. Zero uses defaultLockTimeout.
	LockTimeout time.Duration
}

// Index owns the current corpus, the content-addressed vector cache, and
// the most recently built snapshot. One mutex guards all of it: Refresh
// holds it for the whole refresh, and Snapshot() and Stats() take it too,
// so they wait while a refresh is running. A returned snapshot is immutable
// and is read without any lock.
type Index struct {
	embedder embeddings.Embedder
	loader   *loader.Loader
	store    *diskStore
	config   Config
	metrics  *Metrics

	mu          sync.Mutex // serialises refreshes; Snapshot() and Stats() also take it
	current     *Snapshot
	cache       persistedCache
	loadedOK    bool
	lastRefresh time.Time
	cacheHits   int64
	cacheMisses int64
}

// Stats is a point-in-time readback of index health, for operator-facing
// reporting (the status command). It is not the same as the Prometheus
// counters in metrics.go, which accumulate across the process lifetime and
// are exported for scraping rather than printing.
type Stats struct {
	LastRefresh      time.Time
	CacheHits        int64
	CacheMisses      int64
	BudgetNoLimit    bool
	BudgetLimitBytes int64
	BudgetUsedBytes  int64
}

// CacheHitRate returns the fraction of lookups served from the persisted
// cache since the index was constructed, or 0 if nothing has been looked up
// yet.
func (s Stats) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// New creates an Index. Nothing is read from disk or embedded until the
// first Refresh.
func New(embedder embeddings.Embedder, ld *loader.Loader, config Config) *Index {
	metrics := NewMetrics()
	return &Index{
		embedder: embedder,
		loader:   ld,
		store:    newDiskStore(config.CacheDir, config.LockTimeout, metrics),
		config:   config,
		metrics:  metrics,
	}
}

// Snapshot returns the current immutable snapshot, or nil if Refresh has
// never succeeded. Safe for concurrent use; it takes the index mutex, so it
// waits for a refresh in progress to finish.
func (idx *Index) Snapshot() *Snapshot {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.current
}

// Stats returns a snapshot of cache and memory-budget health as of the most
// recent Refresh.
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	stats := Stats{
		LastRefresh:   idx.lastRefresh,
		CacheHits:     idx.cacheHits,
		CacheMisses:   idx.cacheMisses,
		BudgetNoLimit: idx.config.Budget.NoLimit,
	}
	if !stats.BudgetNoLimit {
		stats.BudgetLimitBytes = idx.budgetLimitBytes()
	}
	if idx.current != nil {
		stats.BudgetUsedBytes = footprintBytes(len(idx.current.Messages), idx.config.Dimension)
	}
	return stats
}

// Refresh runs the build/refresh protocol: load persisted state if needed,
// ask the loader for the current corpus, compare fingerprints, embed only
// new content, enforce the memory budget, persist, and materialise a new
// snapshot. If no session changed, the existing snapshot is returned
// untouched and the embedder is not called.
func (idx *Index) Refresh(ctx context.Context) (*Snapshot, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.loadedOK {
		cache, err := idx.store.load(idx.config.Model)
		if err != nil {
			return nil, err
		}
		idx.cache = cache
		idx.loadedOK = true
	}

	corpus, err := idx.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	if idx.current != nil && !idx.corpusChanged(corpus) {
		idx.lastRefresh = time.Now()
		return idx.current, nil
	}

	if err := idx.embedMissing(ctx, corpus); err != nil {
		if idx.current != nil {
			// Abort this refresh, keep serving the previous snapshot.
			return idx.current, nil
		}
		return nil, err
	}

	idx.garbageCollect(corpus)

	included, excluded := idx.enforceBudget(corpus.Sessions)
	if len(included) == 0 && len(corpus.Sessions) > 0 {
		return nil, fmt.Errorf("memory budget cannot fit even one session")
	}
	if len(excluded) > 0 {
		idx.metrics.RecordEviction(len(excluded))
	}

	if err := idx.store.save(idx.cache); err != nil {
		return nil, fmt.Errorf("persisting embedding cache: %w", err)
	}

	snapshot, err := idx.materialise(included)
	if err != nil {
		return nil, err
	}

	idx.current = snapshot
	idx.lastRefresh = time.Now()
	idx.metrics.RecordSnapshotRebuild()
	return snapshot, nil
}

// corpusChanged reports whether any session's fingerprint differs from the
// persisted set, or a new session appeared.
func (idx *Index) corpusChanged(corpus loader.Corpus) bool {
	if len(corpus.Fingerprints) != len(idx.cache.Fingerprints) {
		return true
	}
	for id, fp := range corpus.Fingerprints {
		if existing, ok := idx.cache.Fingerprints[id]; !ok || existing != fp {
			return true
		}
	}
	return false
}

// embedMissing embeds every content hash present in the corpus but absent
// from the cache, in batches, and inserts the results.
func (idx *Index) embedMissing(ctx context.Context, corpus loader.Corpus) error {
	var missingHashes []string
	var missingTexts []string
	seen := make(map[string]bool)

	for _, m := range corpus.Messages {
		if seen[m.ContentHash] {
			continue
		}
		seen[m.ContentHash] = true
		if _, ok := idx.cache.Vectors[m.ContentHash]; ok {
			idx.metrics.RecordCacheHit()
			idx.cacheHits++
			continue
		}
		idx.metrics.RecordCacheMiss()
		idx.cacheMisses++
		missingHashes = append(missingHashes, m.ContentHash)
		missingTexts = append(missingTexts, m.Content)
	}

	for start := 0; start < len(missingTexts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missingTexts) {
			end = len(missingTexts)
		}

		vectors, err := idx.embedder.EmbedDocuments(ctx, missingTexts[start:end])
		if err != nil {
			return fmt.Errorf("embedding batch: %w", err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), end-start)
		}

		for i, v := range vectors {
			idx.cache.Vectors[missingHashes[start+i]] = normalise(v)
		}
	}

	idx.cache.Model = idx.config.Model
	idx.cache.Dimension = idx.config.Dimension
	for id, fp := range corpus.Fingerprints {
		idx.cache.Fingerprints[id] = fp
	}

	return nil
}

// garbageCollect drops cache entries whose content hash is no longer
// referenced by any message in the corpus.
func (idx *Index) garbageCollect(corpus loader.Corpus) {
	referenced := make(map[string]bool, len(corpus.Messages))
	for _, m := range corpus.Messages {
		referenced[m.ContentHash] = true
	}
	for hash := range idx.cache.Vectors {
		if !referenced[hash] {
			delete(idx.cache.Vectors, hash)
		}
	}

	liveSessions := make(map[string]bool, len(corpus.Sessions))
	for _, s := range corpus.Sessions {
		liveSessions[s.ID] = true
	}
	for id := range idx.cache.Fingerprints {
		if !liveSessions[id] {
			delete(idx.cache.Fingerprints, id)
		}
	}
}

// enforceBudget estimates the footprint of the full session set and, if it
// exceeds the configured limit, excludes sessions oldest-last-timestamp
// first until it fits. Eviction is whole-session, never per-message, so
// context windows stay coherent.
func (idx *Index) enforceBudget(sessions []recall.Session) (included, excluded []recall.Session) {
	if idx.config.Budget.NoLimit {
		return sessions, nil
	}

	limit := idx.budgetLimitBytes()
	if limit <= 0 {
		return sessions, nil
	}

	ordered := make([]recall.Session, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastTimestamp().Before(ordered[j].LastTimestamp())
	})

	remainingMessages := 0
	for _, s := range sessions {
		remainingMessages += len(s.Messages)
	}

	// Drop the oldest session repeatedly until the remaining footprint fits.
	dropped := 0
	for dropped < len(ordered) && footprintBytes(remainingMessages, idx.config.Dimension) > limit {
		remainingMessages -= len(ordered[dropped].Messages)
		dropped++
	}

	excludedSet := make(map[string]bool, dropped)
	for i := 0; i < dropped; i++ {
		excludedSet[ordered[i].ID] = true
	}

	for _, s := range sessions {
		if excludedSet[s.ID] {
			excluded = append(excluded, s)
		} else {
			included = append(included, s)
		}
	}
	return included, excluded
}

// footprintBytes estimates the in-memory footprint of count messages at the
// given embedding dimension: a float32 vector per message plus a fixed
// per-message overhead for the message value itself.
const perMessageOverheadBytes = 128

func footprintBytes(count, dimension int) int64 {
	return int64(count)*4*int64(dimension) + int64(count)*perMessageOverheadBytes
}

func (idx *Index) budgetLimitBytes() int64 {
	if idx.config.Budget.LimitBytes > 0 {
		return idx.config.Budget.LimitBytes
	}
	if idx.config.Budget.Fraction > 0 {
		return int64(float64(totalPhysicalMemory()) * idx.config.Budget.Fraction)
	}
	return 0
}

// materialise builds a snapshot: for each message, look up its vector and
// stack into a matrix. Every message in a snapshot has a corresponding
// embedding row; there are no holes.
func (idx *Index) materialise(sessions []recall.Session) (*Snapshot, error) {
	var messages []recall.Message
	for _, s := range sessions {
		messages = append(messages, s.Messages...)
	}

	vectors := make([][]float32, len(messages))
	for i, m := range messages {
		v, ok := idx.cache.Vectors[m.ContentHash]
		if !ok {
			return nil, fmt.Errorf("missing embedding for content hash %s", m.ContentHash)
		}
		vectors[i] = v
	}

	return newSnapshot(messages, vectors, sessions), nil
}

// normalise scales v to unit L2 norm. A zero vector is returned unchanged:
// normalising it would divide by zero, and a zero vector has no direction.
func normalise(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
