package version

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/fmueller/voxrelay/internal/version.Version=...".
var (
	Version = "0.1.0"
	Commit  = ""
)

// Resolve returns Version with the VCS revision as semver build metadata,
// e.g. "0.1.0+1a2b3c4" or "0.1.0+1a2b3c4.dirty". The revision comes from
// Commit or, failing that, from the build info the go tool embeds.
func Resolve() string {
	return resolve(Version, Commit, debug.ReadBuildInfo)
}

// UserAgent identifies voxrelay on outgoing HTTP requests.
func UserAgent() string {
	return "voxrelay/" + Version
}

func resolve(base, commit string, buildInfo func() (*debug.BuildInfo, bool)) string {
	base = strings.TrimPrefix(strings.TrimSpace(base), "v")
	if base == "" {
		base = "0.0.0"
	}

	revision, dirty := strings.TrimSpace(commit), false
	if revision == "" && buildInfo != nil {
		revision, dirty = vcsRevision(buildInfo)
	}
	if revision == "" {
		return base
	}

	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += ".dirty"
	}
	return base + "+" + revision
}

func vcsRevision(buildInfo func() (*debug.BuildInfo, bool)) (string, bool) {
	info, ok := buildInfo()
	if !ok || info == nil {
		return "", false
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return revision, dirty
}
