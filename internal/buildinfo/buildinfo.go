// Package buildinfo is the assembly/version introspection collaborator
// spec §1 names, used only by the console's status printer. Version,
// Commit and BuildTime are set via -ldflags at build time; an unset Commit
// falls back to the VCS revision in the Go module's own build info
// (runtime/debug), which also supplies GoVersion.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the release tag, set via -ldflags "-X ...Version=...".
	Version = "dev"
	// Commit is the VCS revision, set via -ldflags.
	Commit = "unknown"
	// BuildTime is the build timestamp, set via -ldflags.
	BuildTime = "unknown"
)

// Info is a snapshot suitable for the console's status menu entry and
// for logging at startup.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
}

// Read returns the current build information, filling GoVersion from the
// embedded module build info.
func Read() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime, GoVersion: "unknown"}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if Commit == "unknown" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.Commit = s.Value
				}
			}
		}
	}
	return info
}

// String renders Info as a single human-readable line for the console
// and for startup logging.
func (i Info) String() string {
	return fmt.Sprintf("version=%s commit=%s built=%s go=%s", i.Version, i.Commit, i.BuildTime, i.GoVersion)
}
