package mend

import (
	_ "embed"
)

// Version is the release of the library and the mend CLI.
//
//go:embed VERSION
var Version string
