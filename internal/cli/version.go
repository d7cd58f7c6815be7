package cli

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/buildinfo"
)

const modulePath = "github.com/aidanlsb/skycat"

type versionInfo struct {
	Version   string `json:"version"`
	Module    string `json:"module"`
	Commit    string `json:"commit,omitempty"`
	Built     string `json:"built,omitempty"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var readBuildInfo = debug.ReadBuildInfo

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildVersion()
			if a.jsonOutput {
				a.outputSuccess(info, nil, nil)
				return nil
			}

			a.printf("skycat %s\n", info.Version)
			a.printf("module: %s\n", info.Module)
			if info.Commit != "" {
				suffix := ""
				if info.Dirty {
					suffix = " (dirty)"
				}
				a.printf("commit: %s%s\n", info.Commit, suffix)
			}
			if info.Built != "" {
				a.printf("built: %s\n", info.Built)
			}
			a.printf("go: %s %s\n", info.GoVersion, info.Platform)
			return nil
		},
	}
}

// buildVersion reads the embedded build information, falling back to the
// values injected at link time.
func buildVersion() versionInfo {
	info := versionInfo{
		Version:   "devel",
		Module:    modulePath,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		if bi.Main.Path != "" {
			info.Module = bi.Main.Path
		}
		info.Version = cleanVersion(bi.Main.Version)
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		info.Commit = setting(bi, "vcs.revision")
		info.Built = setting(bi, "vcs.time")
		info.Dirty = strings.EqualFold(setting(bi, "vcs.modified"), "true")
	}

	if info.Version == "devel" && buildinfo.Version != "" {
		info.Version = cleanVersion(buildinfo.Version)
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.Built == "" {
		info.Built = buildinfo.Date
	}
	return info
}

func cleanVersion(v string) string {
	if v == "" || v == "(devel)" {
		return "devel"
	}
	return v
}

func setting(bi *debug.BuildInfo, key string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
