package index

import "github.com/danilop/total-recall/internal/recall"

// Snapshot is an immutable view of the indexed corpus: an ordered message
// list and a parallel matrix of unit-norm embeddings. Every message has a
// corresponding row; there are no holes. A Snapshot is never mutated after
// construction, so concurrent queries can read it without locking.
type Snapshot struct {
	Messages  []recall.Message
	Vectors   [][]float32
	Sessions  []recall.Session
	Dimension int
}

// newSnapshot builds a Snapshot from parallel message and vector slices,
// which must already be the same length and in the same order.
func newSnapshot(messages []recall.Message, vectors [][]float32, sessions []recall.Session) *Snapshot {
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	return &Snapshot{
		Messages:  messages,
		Vectors:   vectors,
		Sessions:  sessions,
		Dimension: dimension,
	}
}

// Len returns the number of messages in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}
