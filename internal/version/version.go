// Package version carries the build identity stamped into the devrig
// binary through -ldflags at release time. Local builds report "dev".
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "none"
	// BuildDate is the build timestamp in RFC 3339.
	BuildDate = "unknown"
)

// String renders the identity the way `devrig version` prints it.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}
