package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVaultPath(t *testing.T) {
	t.Parallel()

	devBase := filepath.Join(os.TempDir(), "capsule-dev")
	inTemp := filepath.Join(os.TempDir(), "already-safe")

	tests := []struct {
		name      string
		userPath  string
		forceTemp bool
		expected  string
	}{
		{name: "Normal Mode - Empty", userPath: "", expected: "."},
		{name: "Normal Mode - Specific Path", userPath: "/some/path", expected: "/some/path"},
		{name: "Dev Mode - Empty Path", userPath: "", forceTemp: true, expected: filepath.Join(devBase, "default")},
		{name: "Dev Mode - Current Dir", userPath: ".", forceTemp: true, expected: filepath.Join(devBase, "default")},
		{name: "Dev Mode - Named Vault", userPath: "../life/vault", forceTemp: true, expected: filepath.Join(devBase, "vault")},
		{name: "Dev Mode - Already In Temp", userPath: inTemp, forceTemp: true, expected: inTemp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveVaultPath(tt.userPath, tt.forceTemp))
		})
	}
}

func TestIsDevRunUnderTest(t *testing.T) {
	assert.True(t, IsDevRun(), "test binaries count as dev runs")
}
