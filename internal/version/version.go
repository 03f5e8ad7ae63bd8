// Package version holds build metadata injected via -ldflags.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X askbot/internal/version.Version=v1.0.0 -X askbot/internal/version.Commit=$(git rev-parse --short HEAD) -X askbot/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line human readable build description.
func Info() string {
	return fmt.Sprintf("askbot %s (commit: %s, built: %s)", Version, Commit, Date)
}
