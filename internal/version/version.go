package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/tabsession"

// buildVersion is set via -ldflags "-X pkt.systems/tabsession/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the release version, a VCS pseudo-version, or a placeholder.
// A "+dirty" suffix marks builds from a modified tree.
func Current() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "v0.0.0-unknown"
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return v
	}
	if v := pseudoFromBuildInfo(info); v != "" {
		return v
	}
	return "v0.0.0-unknown"
}

// Module returns the main module path.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func pseudoFromBuildInfo(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	revision, stamp := settings["vcs.revision"], settings["vcs.time"]
	if revision == "" || stamp == "" {
		return ""
	}
	at, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "v0.0.0-" + at.UTC().Format("20060102150405") + "-" + revision
	if settings["vcs.modified"] == "true" {
		v += "+dirty"
	}
	return v
}
