package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/adapters/sqlite"
)

// ErrRootNotFound is returned when no vault is found above a directory.
var ErrRootNotFound = errors.New("vault root not found")

// rootIndicators mark a directory as a capsule vault.
var rootIndicators = []string{fs.DefaultSystemDir, fs.DefaultFile, sqlite.DefaultFile}

// FindRoot looks upwards from startDir for a vault root: a directory
// holding .capsule, memory.csv or capsule.db. It returns the absolute
// path of the first match.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range rootIndicators {
			if hasFile(dir, name) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
