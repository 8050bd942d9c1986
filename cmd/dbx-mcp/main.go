// dbx-mcp CLI - Databricks MCP server and MCP endpoint validator
package main

import (
	"os"

	"github.com/srea-labs/dbx-mcp/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	return cli.Run()
}
