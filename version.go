package capsule

import (
	_ "embed"
)

// Version is the current version of the library, read from the VERSION file.
//
//go:embed VERSION
var Version string
