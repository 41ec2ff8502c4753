// Package version holds build-time version metadata for meshauthctl.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns formatted version information.
func Info() string {
	return fmt.Sprintf("meshauthctl %s (commit: %s, built: %s) %s",
		Version, Commit, Date, runtime.Version())
}
