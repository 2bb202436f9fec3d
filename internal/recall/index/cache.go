package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/danilop/total-recall/internal/recall"
)

// ErrModelMismatch indicates the persisted cache was built with a different
// embedding model than the one currently configured.
var ErrModelMismatch = errors.New("embedding cache model mismatch")

// defaultLockTimeout is used when Config.LockTimeout is zero.
const defaultLockTimeout = 10 * time.Second

// persistedCache is the on-disk artifact: the embedding model identifier,
// vector dimensionality, the content-hash cache, and known session
// fingerprints. The model identifier guards against silently mixing
// vectors from two different models.
type persistedCache struct {
	Model        string                         `json:"model"`
	Dimension    int                            `json:"dimension"`
	Vectors      map[string][]float32           `json:"vectors"` // content_hash -> vector
	Fingerprints map[string]recall.Fingerprint  `json:"fingerprints"`
}

// diskStore manages the cache file and its sibling advisory lock file.
type diskStore struct {
	cachePath   string
	lockPath    string
	lockTimeout time.Duration
	metrics     *Metrics
}

func newDiskStore(cacheDir string, lockTimeout time.Duration, metrics *Metrics) *diskStore {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &diskStore{
		cachePath:   filepath.Join(cacheDir, "embeddings.json"),
		lockPath:    filepath.Join(cacheDir, "embeddings.lock"),
		lockTimeout: lockTimeout,
		metrics:     metrics,
	}
}

// load reads the persisted cache. A missing file is not an error: it
// returns an empty cache ready to be populated. A model mismatch discards
// whatever was on disk rather than erroring, per the versioning contract.
func (d *diskStore) load(model string) (persistedCache, error) {
	empty := persistedCache{Model: model, Vectors: map[string][]float32{}, Fingerprints: map[string]recall.Fingerprint{}}

	data, err := os.ReadFile(d.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, fmt.Errorf("reading embedding cache: %w", err)
	}

	var pc persistedCache
	if err := json.Unmarshal(data, &pc); err != nil {
		// Corrupt cache: discard and rebuild, not fatal.
		return empty, nil
	}
	if pc.Model != model {
		return empty, nil
	}
	if pc.Vectors == nil {
		pc.Vectors = map[string][]float32{}
	}
	if pc.Fingerprints == nil {
		pc.Fingerprints = map[string]recall.Fingerprint{}
	}
	return pc, nil
}

// save persists the cache atomically: write to a temporary sibling file,
// then rename over the canonical path. An advisory file lock serialises
// concurrent writers across processes; readers never need the lock because
// they only ever observe a fully renamed file.
func (d *diskStore) save(pc persistedCache) error {
	if err := os.MkdirAll(filepath.Dir(d.cachePath), 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.lockTimeout)
	defer cancel()

	lock := flock.New(d.lockPath)
	waitStart := time.Now()
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	d.metrics.RecordLockWait(time.Since(waitStart))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("acquiring cache lock: %w", err)
	}
	if !locked {
		d.metrics.RecordLockTimeout()
		return fmt.Errorf("timed out acquiring cache lock after %s", d.lockTimeout)
	}
	defer lock.Unlock()

	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshaling embedding cache: %w", err)
	}

	tmpPath := d.cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("writing embedding cache: %w", err)
	}
	if err := os.Rename(tmpPath, d.cachePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming embedding cache into place: %w", err)
	}

	return nil
}
