// Package recall defines the canonical message model shared by every
// conversation source, the unified loader, the embedding index, and the
// query engine. It carries no I/O of its own.
package recall

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// uuidNamespace scopes synthesized message UUIDs away from any UUID a
// source might otherwise legitimately generate in this namespace.
var uuidNamespace = uuid.MustParse("a95f4f1e-1b3e-4f1a-9d3a-7e9d5f8c6b2d")

// SynthesizeUUID deterministically derives a message identifier from its
// session and ordinal, for sources that don't record a UUID of their own. Two
// calls with the same (sessionID, ordinal) always produce the same UUID.
func SynthesizeUUID(sessionID string, ordinal int) string {
	name := sessionID + "\x00" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(uuidNamespace, []byte(name)).String()
}

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Source identifies which on-disk store a message was read from.
type Source string

const (
	SourceCLI Source = "cli"
	SourceIDE Source = "ide"
)

// Message is the atomic indexed unit: one turn in one session.
type Message struct {
	Role        Role
	Content     string
	Timestamp   time.Time
	Source      Source
	Workspace   string // absolute path; may be empty for workspace-less CLI messages
	SessionID   string
	UUID        string
	Ordinal     int // position within its session, used for synthesis and tie-breaking
	ContentHash string
}

// HashContent returns the stable content-addressing hash of a message body.
// SHA-256 is wider than the 128-bit floor the loader requires, and is the
// same digest ComputeFingerprint uses below.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Session is an ordered run of messages sharing (SessionID, Source, Workspace).
type Session struct {
	ID        string
	Source    Source
	Workspace string
	Messages  []Message // ordered by (timestamp, ordinal)
}

// LastTimestamp returns the timestamp of the session's final message, or the
// zero time for an empty session.
func (s Session) LastTimestamp() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

// Fingerprint is a compact session-level digest used to detect a changed
// session without re-reading every message body.
type Fingerprint string

// ComputeFingerprint hashes (sessionID, message count, last timestamp, hash
// of last message content) into a single comparable value.
func ComputeFingerprint(s Session) Fingerprint {
	h := sha256.New()
	h.Write([]byte(s.ID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(len(s.Messages))))
	h.Write([]byte{0})
	if len(s.Messages) > 0 {
		last := s.Messages[len(s.Messages)-1]
		h.Write([]byte(last.Timestamp.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
		h.Write([]byte(last.ContentHash))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// DedupKey returns the identity of a message under deduplication:
// (content_hash, role).
func (m Message) DedupKey() string {
	return string(m.Role) + "\x00" + m.ContentHash
}
