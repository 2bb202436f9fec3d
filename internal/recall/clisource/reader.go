// Package clisource reads canonical messages from the CLI's relational
// conversation store: a SQLite database with one row per session, each row
// carrying its turns as a serialized JSON array.
package clisource

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/danilop/total-recall/internal/recall"
)

// turn is the serialized shape of one row's turns column.
type turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	UUID      string `json:"uuid,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Reader reads sessions from a conversation store file.
type Reader struct {
	// Warnf receives one line per skipped malformed row. Nil discards them.
	Warnf func(format string, args ...any)
}

// New creates a CLI source reader.
func New() *Reader {
	return &Reader{}
}

// Read opens the database at path and returns every session it can parse.
// A missing or unreachable database file is returned as an error: the
// caller decides whether that is fatal for this source only.
func (r *Reader) Read(path string) ([]recall.Session, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening conversation store %s: %w", path, err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("conversation store %s unreachable: %w", path, err)
	}

	rows, err := db.Query(`SELECT session_id, workspace, timestamp, turns FROM sessions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []recall.Session
	for rows.Next() {
		var sessionID, workspace, timestampStr, turnsJSON string
		if err := rows.Scan(&sessionID, &workspace, &timestampStr, &turnsJSON); err != nil {
			r.warn("skipping malformed row: %v", err)
			continue
		}

		session, err := r.parseSession(sessionID, workspace, timestampStr, turnsJSON)
		if err != nil {
			r.warn("skipping malformed session %q: %v", sessionID, err)
			continue
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *Reader) parseSession(sessionID, workspace, timestampStr, turnsJSON string) (recall.Session, error) {
	sessionTime, _ := time.Parse(time.RFC3339, timestampStr) // best-known session time, zero value is an acceptable fallback

	var turns []turn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		return recall.Session{}, fmt.Errorf("decoding turns: %w", err)
	}

	messages := make([]recall.Message, 0, len(turns))
	for i, t := range turns {
		ts := sessionTime
		if t.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, t.Timestamp); err == nil {
				ts = parsed
			}
		}

		uuid := t.UUID
		if uuid == "" {
			uuid = recall.SynthesizeUUID(sessionID, i)
		}

		messages = append(messages, recall.Message{
			Role:      recall.Role(t.Role),
			Content:   t.Content,
			Timestamp: ts,
			Source:    recall.SourceCLI,
			Workspace: workspace,
			SessionID: sessionID,
			UUID:      uuid,
			Ordinal:   i,
		})
	}

	return recall.Session{
		ID:        sessionID,
		Source:    recall.SourceCLI,
		Workspace: workspace,
		Messages:  messages,
	}, nil
}

func (r *Reader) warn(format string, args ...any) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
	}
}
