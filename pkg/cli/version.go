package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/srea-labs/dbx-mcp/pkg/cli/internal/output"
	"github.com/srea-labs/dbx-mcp/pkg/mcp"
)

// VersionOutput represents JSON output format
type VersionOutput struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	Date            string `json:"date"`
	ProtocolVersion string `json:"protocolVersion"`
	Go              string `json:"go"`
	OS              string `json:"os"`
	Arch            string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show dbx-mcp version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := buildVersionOutput()

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), out)
		}

		v := out.Version
		if len(v) > 0 && v[0] != 'v' && v != "dev" && v != "(devel)" {
			v = "v" + v
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "dbx-mcp %s (%s, %s)\n", v, out.Commit, out.Date)
		fmt.Fprintf(w, "MCP protocol %s\n", out.ProtocolVersion)
		fmt.Fprintf(w, "%s %s/%s\n", out.Go, out.OS, out.Arch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// buildVersionOutput fills in build metadata, falling back to the module
// build info when the link-time values were not injected.
func buildVersionOutput() VersionOutput {
	version := Version
	commit := Commit
	date := BuildDate

	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" {
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "none" {
					commit = setting.Value
				}
			case "vcs.time":
				if date == "unknown" {
					date = setting.Value
				}
			case "vcs.modified":
				if setting.Value == "true" {
					commit += "-dirty"
				}
			}
		}
	}

	return VersionOutput{
		Version:         version,
		Commit:          commit,
		Date:            date,
		ProtocolVersion: mcp.ProtocolVersion,
		Go:              runtime.Version(),
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
	}
}
