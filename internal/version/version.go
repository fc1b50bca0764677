// Where: cli/internal/version/version.go
// What: Version information retrieval.
// Why: Report the release tag or Git revision the binary was built from.
package version

import (
	"fmt"
	"runtime/debug"
)

// Release is overridden at build time via -ldflags for tagged builds.
var Release = ""

// GetVersion returns the release tag when one was stamped in, otherwise
// the VCS revision from build info, marked "(dirty)" for a modified tree.
// Falls back to "dev" when neither is available.
func GetVersion() string {
	if Release != "" {
		return Release
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if revision == "" {
		return "dev"
	}
	if modified {
		return fmt.Sprintf("%s (dirty)", revision)
	}
	return revision
}
