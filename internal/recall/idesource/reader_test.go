package idesource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danilop/total-recall/internal/recall"
)

func TestRead_ParsesDocumentsAndDecodesWorkspace(t *testing.T) {
	root := t.TempDir()
	workspaceDir := filepath.Join(root, "-home-user-my-project")
	require.NoError(t, os.MkdirAll(workspaceDir, 0755))

	doc := `{
		"session_id": "sess-1",
		"timestamp": "2025-01-15T00:00:00Z",
		"messages": [
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi there", "timestamp": "2025-01-15T00:01:00Z"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(workspaceDir, "sess-1.json"), []byte(doc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workspaceDir, "broken.json"), []byte("not json"), 0644))

	var warnings []string
	r := &Reader{Warnf: func(format string, args ...any) { warnings = append(warnings, format) }}

	sessions, err := r.Read([]string{filepath.Join(root, "*", "*.json")})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, warnings, 1)

	session := sessions[0]
	require.Equal(t, "sess-1", session.ID)
	require.Equal(t, "/home/user/my/project", session.Workspace)
	require.Len(t, session.Messages, 2)
	require.Equal(t, recall.SynthesizeUUID("sess-1", 0), session.Messages[0].UUID)
	require.Equal(t, recall.SynthesizeUUID("sess-1", 1), session.Messages[1].UUID)
}

func TestRead_MissingDirectoryIsNotAnError(t *testing.T) {
	r := New()
	sessions, err := r.Read([]string{"/nonexistent/path/*/*.json"})
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestRead_SkipsTurnsMissingRequiredFields(t *testing.T) {
	root := t.TempDir()
	workspaceDir := filepath.Join(root, "-tmp-proj")
	require.NoError(t, os.MkdirAll(workspaceDir, 0755))

	doc := `{"session_id": "s", "messages": [{"role": "user"}, {"role": "user", "content": "kept"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(workspaceDir, "s.json"), []byte(doc), 0644))

	r := New()
	sessions, err := r.Read([]string{filepath.Join(root, "*", "*.json")})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 1)
	require.Equal(t, "kept", sessions[0].Messages[0].Content)
}

func TestDecodeWorkspace(t *testing.T) {
	require.Equal(t, "/home/user/project", DecodeWorkspace("-home-user-project"))
	require.Equal(t, "", DecodeWorkspace(""))
	require.Equal(t, "plainname", DecodeWorkspace("plainname"))
}
