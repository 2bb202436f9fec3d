// Package query implements cosine-similarity search over an index
// snapshot: filtering, scoring, deterministic tie-breaking, deduplication,
// pagination, and context-window assembly.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/danilop/total-recall/internal/embeddings"
	"github.com/danilop/total-recall/internal/recall"
	"github.com/danilop/total-recall/internal/recall/index"
)

// Filters restricts the candidate set before scoring. A zero value applies
// no restriction.
type Filters struct {
	After     *time.Time // inclusive
	Before    *time.Time // exclusive
	Workspace *string    // exact match when set
	Sources   []recall.Source
}

// Request is one search call. Defaults for Threshold/MaxResults/ContextSize
// mirror the configured search.default_* values and are applied by the
// caller before reaching here.
type Request struct {
	Query       string
	Filters     Filters
	ContextSize int
	Threshold   float64
	MaxResults  int
	Offset      int
}

// Validate rejects malformed requests before any embedding or scan work.
func (r Request) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query must not be empty")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %v", r.Threshold)
	}
	if r.ContextSize < 0 {
		return fmt.Errorf("context_size must be >= 0, got %d", r.ContextSize)
	}
	if r.MaxResults < 1 {
		return fmt.Errorf("max_results must be >= 1, got %d", r.MaxResults)
	}
	if r.Offset < 0 {
		return fmt.Errorf("offset must be >= 0, got %d", r.Offset)
	}
	return nil
}

// ContextMessage is one entry in a result's surrounding window.
type ContextMessage struct {
	Message recall.Message
	IsMatch bool
}

// Result is one matched message plus its context window.
type Result struct {
	Message recall.Message
	Score   float32
	Context []ContextMessage
}

// Response is the full shape returned to a tool-call caller.
type Response struct {
	Results      []Result
	Query        string
	TotalMatches int
	Offset       int
	HasMore      bool
	Hint         string
}

// Engine answers search requests against a live index.
type Engine struct {
	idx      *index.Index
	embedder embeddings.Embedder
}

// New creates an Engine over the given index and query embedder.
func New(idx *index.Index, embedder embeddings.Embedder) *Engine {
	return &Engine{idx: idx, embedder: embedder}
}

// Search runs the full algorithm: refresh, embed, filter, score, dedupe,
// paginate, assemble context.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	snap, err := e.idx.Refresh(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("refreshing index: %w", err)
	}
	if snap == nil || snap.Len() == 0 {
		return Response{Query: req.Query, Hint: "no indexed messages"}, nil
	}

	queryVector, err := e.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return Response{}, fmt.Errorf("embedding query: %w", err)
	}
	queryVector = normalise(queryVector)

	scored := scoreSnapshot(snap, queryVector, req.Filters, req.Threshold)

	sort.SliceStable(scored, func(i, j int) bool {
		return scoredLess(scored[i], scored[j])
	})

	deduped := dedupe(scored)

	total := len(deduped)
	page := paginate(deduped, req.Offset, req.MaxResults)

	results := make([]Result, len(page))
	for i, c := range page {
		results[i] = Result{
			Message: c.message,
			Score:   c.score,
			Context: assembleContext(snap, c.snapshotIndex, req.ContextSize),
		}
	}

	hasMore := req.Offset+len(page) < total

	return Response{
		Results:      results,
		Query:        req.Query,
		TotalMatches: total,
		Offset:       req.Offset,
		HasMore:      hasMore,
		Hint:         hint(total, len(results)),
	}, nil
}

type candidate struct {
	message       recall.Message
	score         float32
	snapshotIndex int
}

// scoreSnapshot computes the cosine similarity of every unmasked message
// against the query vector and drops anything below threshold.
func scoreSnapshot(snap *index.Snapshot, queryVector []float32, filters Filters, threshold float64) []candidate {
	var out []candidate
	for i, m := range snap.Messages {
		if !passesFilters(m, filters) {
			continue
		}
		score := dot(queryVector, snap.Vectors[i])
		if float64(score) < threshold {
			continue
		}
		out = append(out, candidate{message: m, score: score, snapshotIndex: i})
	}
	return out
}

func passesFilters(m recall.Message, f Filters) bool {
	if f.After != nil && m.Timestamp.Before(*f.After) {
		return false
	}
	if f.Before != nil && !m.Timestamp.Before(*f.Before) {
		return false
	}
	if f.Workspace != nil && m.Workspace != *f.Workspace {
		return false
	}
	if len(f.Sources) > 0 {
		found := false
		for _, s := range f.Sources {
			if m.Source == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// scoredLess orders candidates by descending score, then newer timestamp
// first, then (source, session_id, uuid) lexicographically for
// deterministic tie-breaking.
func scoredLess(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.message.Timestamp.Equal(b.message.Timestamp) {
		return a.message.Timestamp.After(b.message.Timestamp)
	}
	if a.message.Source != b.message.Source {
		return a.message.Source < b.message.Source
	}
	if a.message.SessionID != b.message.SessionID {
		return a.message.SessionID < b.message.SessionID
	}
	return a.message.UUID < b.message.UUID
}

// dedupe suppresses any later hit whose (content_hash, role) matches an
// earlier kept hit, preserving the incoming sort order.
func dedupe(scored []candidate) []candidate {
	seen := make(map[string]bool, len(scored))
	out := make([]candidate, 0, len(scored))
	for _, c := range scored {
		key := c.message.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func paginate(deduped []candidate, offset, maxResults int) []candidate {
	if offset >= len(deduped) {
		return nil
	}
	end := offset + maxResults
	if end > len(deduped) {
		end = len(deduped)
	}
	return deduped[offset:end]
}

// assembleContext builds the band of messages surrounding a match within
// its own session, truncated (not padded) at session boundaries. A session
// is identified by (SessionID, Source, Workspace), not SessionID alone: two
// sources can assign the same session_id to unrelated sessions.
func assembleContext(snap *index.Snapshot, matchIndex, contextSize int) []ContextMessage {
	match := snap.Messages[matchIndex]
	sameSession := func(m recall.Message) bool {
		return m.SessionID == match.SessionID && m.Source == match.Source && m.Workspace == match.Workspace
	}

	start := matchIndex
	for start > 0 && start-1 >= 0 && sameSession(snap.Messages[start-1]) && matchIndex-start < contextSize {
		start--
	}
	end := matchIndex
	for end+1 < len(snap.Messages) && sameSession(snap.Messages[end+1]) && end-matchIndex < contextSize {
		end++
	}

	window := make([]ContextMessage, 0, end-start+1)
	for i := start; i <= end; i++ {
		window = append(window, ContextMessage{Message: snap.Messages[i], IsMatch: i == matchIndex})
	}
	return window
}

func hint(total, returned int) string {
	if total == 0 {
		return "no matches found"
	}
	if returned < total {
		return fmt.Sprintf("%d of %d matches shown", returned, total)
	}
	return fmt.Sprintf("%d matches", total)
}

func dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalise(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * scale
	}
	return out
}
