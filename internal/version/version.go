// Package version carries build metadata stamped in at link time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the tcide release. Set via ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/tcide/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by
// `go install` when no ldflags were given.
func Resolved() string {
	if Version != "unknown" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// UserAgent is the User-Agent header sent to the challenge platform.
func UserAgent() string {
	return "tcide/" + Resolved()
}

// String renders the full build description shown by --version.
func String() string {
	return fmt.Sprintf("tcide %s (commit %s, built %s, %s/%s)",
		Resolved(), GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}
