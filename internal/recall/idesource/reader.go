// Package idesource reads canonical messages from the IDE's chat-document
// store: a directory tree of per-session JSON documents, one session per
// file, grouped into per-workspace subdirectories whose names encode the
// workspace's absolute path.
package idesource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danilop/total-recall/internal/recall"
)

// chatTurn is the loosely-typed shape of one turn in a chat document.
// Unknown fields are ignored; a turn missing role or content is skipped.
type chatTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	UUID      string `json:"uuid,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// chatDocument is the loosely-typed shape of one session's document.
type chatDocument struct {
	SessionID string     `json:"session_id,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Messages  []chatTurn `json:"messages"`
}

// Reader reads chat documents matched by glob patterns.
type Reader struct {
	// Warnf receives one line per skipped malformed document. Nil discards them.
	Warnf func(format string, args ...any)
}

// New creates an IDE source reader.
func New() *Reader {
	return &Reader{}
}

// Read expands every pattern and returns one session per document it can
// parse. A pattern matching no files is not an error.
func (r *Reader) Read(patterns []string) ([]recall.Session, error) {
	var sessions []recall.Session
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			r.warn("skipping invalid pattern %q: %v", pattern, err)
			continue
		}
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			session, err := r.readDocument(path)
			if err != nil {
				r.warn("skipping malformed document %q: %v", path, err)
				continue
			}
			sessions = append(sessions, session)
		}
	}

	return sessions, nil
}

func (r *Reader) readDocument(path string) (recall.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recall.Session{}, err
	}

	var doc chatDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return recall.Session{}, err
	}

	sessionID := doc.SessionID
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	workspace := DecodeWorkspace(filepath.Base(filepath.Dir(path)))

	sessionTime, _ := time.Parse(time.RFC3339, doc.Timestamp)

	ordinal := 0
	messages := make([]recall.Message, 0, len(doc.Messages))
	for _, t := range doc.Messages {
		if t.Role == "" || t.Content == "" {
			continue // missing required fields: skip the record, per the loader's schema boundary
		}

		ts := sessionTime
		if t.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, t.Timestamp); err == nil {
				ts = parsed
			}
		}

		uuid := t.UUID
		if uuid == "" {
			uuid = recall.SynthesizeUUID(sessionID, ordinal)
		}

		messages = append(messages, recall.Message{
			Role:      recall.Role(t.Role),
			Content:   t.Content,
			Timestamp: ts,
			Source:    recall.SourceIDE,
			Workspace: workspace,
			SessionID: sessionID,
			UUID:      uuid,
			Ordinal:   ordinal,
		})
		ordinal++
	}

	return recall.Session{
		ID:        sessionID,
		Source:    recall.SourceIDE,
		Workspace: workspace,
		Messages:  messages,
	}, nil
}

// DecodeWorkspace reverses the Claude-Code-style directory-name encoding of
// a workspace path: every path separator is replaced with a hyphen, so
// "-home-user-my-project" decodes to "/home/user/my/project". This
// convention is host-specific and not guaranteed by any external contract;
// it is the one documented assumption this reader makes about the encoding.
func DecodeWorkspace(dirName string) string {
	if dirName == "" || dirName == "." {
		return ""
	}
	if !strings.HasPrefix(dirName, "-") {
		return dirName
	}
	return strings.ReplaceAll(dirName, "-", "/")
}

func (r *Reader) warn(format string, args ...any) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
	}
}
