// Package version reports the build of xbeectl.
//
// Release builds set Version and Commit with ldflags:
//
//	go build -ldflags="-X github.com/muurk/xbeeapi/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/xbeeapi/internal/version.Commit=abc123"
//
// Otherwise they are derived from the module and VCS stamps embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release version, e.g. v1.2.3
	Version = ""
	// Commit is the short git revision, suffixed with -dirty for modified trees
	Commit = ""
)

const shortCommitLen = 7

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(info)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills whichever of Version and Commit ldflags left empty.
// "go install module@v1.2.3" stamps the module version; local builds only carry VCS settings.
func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	vcs := make(map[string]string)
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortCommitLen {
			rev = rev[:shortCommitLen]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.UTC().Format("20060102")
		}
	}
}

// Full returns the version and commit, e.g. "v1.2.3 (commit: abc1234)"
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent identifies xbeectl to bridges and in bridge status replies
func UserAgent() string {
	return "xbeectl/" + Version
}
