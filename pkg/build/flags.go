// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags, for example:
//
//	go build -ldflags "-X spectrum/pkg/build.buildName=spectrum -X spectrum/pkg/build.buildVersion=0.1.0 ..."
//
// Every process also gets a random instance id, stamped on published frames so
// consumers can tell several analysers apart.
package build

import (
	"fmt"

	"github.com/google/uuid"
)

const description = "Real-time spectral analysis of live or recorded audio"

// Flags holds the build information.
type Flags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
	Instance    string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *Flags {
	return &Flags{
		Name:        "spectrum",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
		Instance:    uuid.NewString(),
	}
}

// Initialize validates and copies build information from ldflags variables
// into the build flags. Returns an error if any required build flag is
// missing; the development defaults stay in place in that case.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Flags {
	return buildFlags
}

// Instance returns this process's id.
func Instance() string {
	return buildFlags.Instance
}

// String formats the flags for the version command.
func (f *Flags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
