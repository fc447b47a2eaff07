// Package buildinfo carries version details stamped in with -ldflags, e.g.
//
//	-X github.com/beandash/beandash/internal/buildinfo.Version=v0.3.0
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Summary formats the version line shown by --version.
func Summary() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
