package vcs

import (
	"fmt"
	"runtime/debug"
)

// Version reports the build's VCS revision, with a -dirty suffix when the
// working tree had uncommitted changes.
func Version() string {
	var (
		revision string
		modified bool
	)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				modified = true
			}
		}
	}

	if revision == "" {
		return "unknown"
	}

	if modified {
		return fmt.Sprintf("%s-dirty", revision)
	}

	return revision
}
