// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = info

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	info = origInfo

	os.Exit(exitCode)
}

func resetInfo() {
	info = Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2026-10-18", "abcdef123", "v1.0.0", "3 of 4 set"},
		{"Missing BuildCommit", "spectra", "2026-10-18", "", "v1.0.0", "3 of 4 set"},
		{"Only Version", "", "", "", "v1.0.0", "1 of 4 set"},
		{"Success Case", "spectra", "2026-10-18", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Initialize() error = %v, want substring %q", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			got := GetBuildFlags()
			if got.Name != tt.buildName || got.Time != tt.buildTime ||
				got.Commit != tt.buildCommit || got.Version != tt.buildVer {
				t.Errorf("GetBuildFlags() = %+v", got)
			}
		})
	}
}

func TestInitializeFallsBackToToolchainInfo(t *testing.T) {
	resetInfo()
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	orig := readBuildInfo
	defer func() { readBuildInfo = orig }()
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "f00dfeed"},
				{Key: "vcs.time", Value: "2026-10-01T10:00:00Z"},
			},
		}, true
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}
	got := GetBuildFlags()
	if got.Name != defaultName {
		t.Errorf("Name = %q, want %q", got.Name, defaultName)
	}
	if got.Version != "v0.3.0" || got.Commit != "f00dfeed" || got.Time != "2026-10-01T10:00:00Z" {
		t.Errorf("GetBuildFlags() = %+v", got)
	}
	if !strings.Contains(got.String(), "f00dfeed") {
		t.Errorf("String() = %q, missing commit", got.String())
	}
}
