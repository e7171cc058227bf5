// Package buildinfo exposes the version metadata stamped into the habridge
// binary at build time, plus the runtime details the version command prints.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"
)

// Set by the release build via -ldflags -X.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

var startTime = time.Now()

// Info returns the build and runtime details as a map, keyed for the
// version command's detail listing.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"git_branch": GitBranch,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime returns how long the process has been running, truncated to whole
// seconds.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns the one-line banner used at startup and in version output.
func String() string {
	return fmt.Sprintf("habridge %s (%s@%s) built %s", Version, GitCommit, GitBranch, BuildTime)
}
