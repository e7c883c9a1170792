package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/ternarybob/seoforge/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion returns the release version
func GetVersion() string {
	return Version
}

// GetVersionInfo returns the linker-provided version fields. When the commit
// was not injected the VCS revision recorded by the Go toolchain is used.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Build:     Build,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.GitCommit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range bi.Settings {
				switch setting.Key {
				case "vcs.revision":
					info.GitCommit = shortCommit(setting.Value)
				case "vcs.time":
					if info.Build == "unknown" {
						info.Build = setting.Value
					}
				}
			}
		}
	}
	return info
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (build: %s, commit: %s, %s %s)", info.Version, info.Build, info.GitCommit, info.GoVersion, info.Platform)
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
