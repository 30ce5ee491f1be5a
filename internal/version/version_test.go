package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name        string
		info        debug.BuildInfo
		wantVersion string
		wantCommit  string
	}{
		{
			name: "module version and dirty tree",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "v1.4.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			wantVersion: "v1.4.0",
			wantCommit:  "0123456-dirty",
		},
		{
			name: "devel build uses commit date",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc"},
					{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
				},
			},
			wantVersion: "dev-20260301",
			wantCommit:  "abc",
		},
		{
			name: "no stamps",
			info: debug.BuildInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit := Version, Commit
			defer func() { Version, Commit = oldVersion, oldCommit }()
			Version, Commit = "", ""

			fromBuildInfo(&tt.info)
			if Version != tt.wantVersion || Commit != tt.wantCommit {
				t.Errorf("got %q/%q, want %q/%q", Version, Commit, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestLdflagsWin(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()
	Version, Commit = "v9.9.9", "feedbee"

	fromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "v1.0.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789"}},
	})
	if Version != "v9.9.9" || Commit != "feedbee" {
		t.Errorf("ldflags values overwritten: %q/%q", Version, Commit)
	}
	if !strings.HasPrefix(UserAgent(), "xbeectl/v9.9.9") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
