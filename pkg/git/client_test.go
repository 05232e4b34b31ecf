package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	unlock, err := client.Lock()
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, ".capsule.lock")
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	// A second acquisition must time out while the lock is held.
	_, err = client.LockTimeout(30 * time.Millisecond)
	assert.Error(t, err)

	unlock()

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_CommitFiles(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	require.NoError(t, client.Init())
	assert.True(t, client.IsRepo())

	_, _ = client.Run("config", "user.email", "capsule@example.com")
	_, _ = client.Run("config", "user.name", "capsule")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "memory.csv"), []byte("a\n"), 0644))
	require.NoError(t, client.CommitFiles(FormatCommitMessage(CommitTypeFeat, "records", "capture", ""), "memory.csv"))

	status, err := client.Status()
	require.NoError(t, err)
	assert.Empty(t, status)

	// Nothing changed: no error, no empty commit.
	require.NoError(t, client.CommitFiles("noop", "memory.csv"))
}

func TestFormatCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		ctype   string
		scope   string
		subject string
		body    string
		want    string
	}{
		{"simple", "feat", "", "add record", "", "feat: add record\n\nPowered-by: Capsule"},
		{"with scope", "fix", "records", "repair", "", "fix(records): repair\n\nPowered-by: Capsule"},
		{"with body", "feat", "records", "complete", "  2 derived  ", "feat(records): complete\n\n2 derived\n\nPowered-by: Capsule"},
		{"default type", "", "", "x", "", "chore: x\n\nPowered-by: Capsule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCommitMessage(tt.ctype, tt.scope, tt.subject, tt.body))
		})
	}
}
