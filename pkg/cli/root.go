package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbx-mcp",
	Short: "dbx-mcp serves Databricks tools over MCP and validates MCP endpoints",
	Long: `dbx-mcp runs a Databricks MCP server over streamable HTTP and exercises
MCP endpoints with scripted validation scenarios.

Configuration can be provided via flags, DBX_MCP_* environment variables, a local
.dbxmcprc.yaml, or a global config at $XDG_CONFIG_HOME/dbx-mcp/config.yaml.
Workspace credentials come from DATABRICKS_HOST and DATABRICKS_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Run()
}

// Run executes the root command and returns the process exit code.
func Run() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return 1
}

// Execute runs the CLI and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Run())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
