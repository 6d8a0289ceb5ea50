package version

import "fmt"

var (
	// Version is the current version of the server
	// This will be overridden by ldflags during build
	Version = "dev"

	// These variables are set by goreleaser
	commit = "unknown"
	date   = "unknown"
)

// SetBuildInfo sets the build information
func SetBuildInfo(commitHash, buildDate string) {
	commit = commitHash
	date = buildDate
}

// GetVersion returns the full version string
func GetVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit, date)
}
