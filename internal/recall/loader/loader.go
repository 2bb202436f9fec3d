// Package loader merges the CLI and IDE sources into one canonical,
// ordered corpus: it attaches content hashes, computes session
// fingerprints, and enforces the load-time content constraints that keep
// pathological input out of the embedding index.
package loader

import (
	"sort"

	"github.com/danilop/total-recall/internal/recall"
)

// CLIReader reads sessions from the CLI conversation store.
type CLIReader interface {
	Read(path string) ([]recall.Session, error)
}

// IDEReader reads sessions from the IDE chat-document directory.
type IDEReader interface {
	Read(patterns []string) ([]recall.Session, error)
}

// Config controls which sources are read and the content-length cap.
type Config struct {
	CLIEnabled     bool
	CLIPaths       []string
	IDEEnabled     bool
	IDEPatterns    []string
	MaxContentSize int // bytes; messages longer than this are dropped
}

// Warnf receives one line per source or record-level problem that was
// recovered from, per the error-handling design: source-unavailable and
// record-malformed conditions are logged, not surfaced.
type Warnf func(format string, args ...any)

// Loader merges the CLI and IDE sources into one ordered corpus.
type Loader struct {
	cli    CLIReader
	ide    IDEReader
	config Config
	warnf  Warnf
}

// New creates a Loader over the given readers and configuration.
func New(cli CLIReader, ide IDEReader, config Config, warnf Warnf) *Loader {
	return &Loader{cli: cli, ide: ide, config: config, warnf: warnf}
}

// Corpus is the merged, ordered result of a Load call. Messages is the flat
// list in the unified loader's canonical sort order, (timestamp, source,
// session_id, ordinal); Sessions groups the same messages by session for
// context-window assembly and fingerprint comparison.
type Corpus struct {
	Messages     []recall.Message
	Sessions     []recall.Session
	Fingerprints map[string]recall.Fingerprint // keyed by session ID
}

// Load reads both sources, merges and sorts their messages, computes
// content hashes and fingerprints, and drops messages that fail the
// load-time content constraints. An unreachable CLI store is logged and
// skipped; the IDE source still proceeds, and vice versa.
func (l *Loader) Load() (Corpus, error) {
	var allSessions []recall.Session

	if l.config.CLIEnabled {
		for _, path := range l.config.CLIPaths {
			sessions, err := l.cli.Read(path)
			if err != nil {
				l.warn("cli source %q unavailable: %v", path, err)
				continue
			}
			allSessions = append(allSessions, sessions...)
		}
	}

	if l.config.IDEEnabled {
		sessions, err := l.ide.Read(l.config.IDEPatterns)
		if err != nil {
			l.warn("ide source unavailable: %v", err)
		} else {
			allSessions = append(allSessions, sessions...)
		}
	}

	fingerprints := make(map[string]recall.Fingerprint, len(allSessions))
	result := make([]recall.Session, 0, len(allSessions))

	for _, session := range allSessions {
		session.Messages = l.filterAndHash(session.Messages)
		sortMessages(session.Messages)
		if len(session.Messages) == 0 {
			continue
		}
		fingerprints[session.ID] = recall.ComputeFingerprint(session)
		result = append(result, session)
	}

	sort.Slice(result, func(i, j int) bool {
		return sessionLess(result[i], result[j])
	})

	var flat []recall.Message
	for _, session := range result {
		flat = append(flat, session.Messages...)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return messageLess(flat[i], flat[j])
	})

	return Corpus{Messages: flat, Sessions: result, Fingerprints: fingerprints}, nil
}

// messageLess implements the unified loader's canonical sort key:
// (timestamp, source, session_id, ordinal).
func messageLess(a, b recall.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.SessionID != b.SessionID {
		return a.SessionID < b.SessionID
	}
	return a.Ordinal < b.Ordinal
}

// filterAndHash drops empty or oversized messages and computes each
// surviving message's content hash.
func (l *Loader) filterAndHash(messages []recall.Message) []recall.Message {
	kept := messages[:0]
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		if l.config.MaxContentSize > 0 && len(m.Content) > l.config.MaxContentSize {
			l.warn("dropping oversized message in session %q (%d bytes)", m.SessionID, len(m.Content))
			continue
		}
		m.ContentHash = recall.HashContent(m.Content)
		kept = append(kept, m)
	}
	return kept
}

// sortMessages orders a session's messages by (timestamp, ordinal), the
// source order being authoritative when timestamps tie.
func sortMessages(messages []recall.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		}
		return messages[i].Ordinal < messages[j].Ordinal
	})
}

// sessionLess orders sessions by their first message's (timestamp, source,
// session_id), matching the corpus-wide sort key from the unified loader
// contract.
func sessionLess(a, b recall.Session) bool {
	at, bt := a.Messages[0].Timestamp, b.Messages[0].Timestamp
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.ID < b.ID
}
