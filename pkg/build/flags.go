// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the spectra binary at link
// time. Release builds set every field with -ldflags, for example:
//
//	go build -ldflags "-X spectra/pkg/build.buildVersion=0.3.0 \
//	    -X spectra/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds leave the variables empty; Initialize then falls back to
// the module information recorded by the Go toolchain.
package build

import (
	"fmt"
	"runtime/debug"
)

const (
	defaultName        = "spectra"
	defaultDescription = "Inline spectrum analyzer for an audio playback path"
	unknown            = "unknown"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders a one-line version banner.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = Info{
	Name:        defaultName,
	Description: defaultDescription,
	Time:        unknown,
	Commit:      unknown,
	Version:     unknown,
}

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags values into the package Info. Fields that were
// not stamped are filled from the toolchain build info where available. It
// returns an error only when a partial set of ldflags was supplied, which
// indicates a broken release script.
func Initialize() error {
	stamped := 0
	for _, v := range []string{buildName, buildTime, buildCommit, buildVersion} {
		if v != "" {
			stamped++
		}
	}
	if stamped > 0 && stamped < 4 {
		return fmt.Errorf("incomplete build flags: %d of 4 set", stamped)
	}

	if stamped == 4 {
		info.Name = buildName
		info.Time = buildTime
		info.Commit = buildCommit
		info.Version = buildVersion
		return nil
	}

	bi, ok := readBuildInfo()
	if !ok {
		return nil
	}
	if v := bi.Main.Version; v != "" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.Time = s.Value
		}
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return info
}
