package debater

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the API version reported by GET / and `debater version`.
const Version = "0.1.0"

// Set with -ldflags "-X github.com/kadirpekel/debater.GitCommit=..."
var (
	BuildDate = ""
	GitCommit = ""
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"built_at"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion reports the running binary's version. Commit and build time
// fall back to the VCS stamp the go tool embeds when ldflags left them
// empty.
func GetVersion() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuiltAt:   BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.BuiltAt == "":
				info.BuiltAt = s.Value
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuiltAt == "" {
		info.BuiltAt = "unknown"
	}
	return info
}

func (i BuildInfo) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("debater %s (commit %s, built %s, %s %s)",
		i.Version, commit, i.BuiltAt, i.GoVersion, i.Platform)
}
