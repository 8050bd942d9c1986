package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srea-labs/dbx-mcp/pkg/cli/internal/output"
	"github.com/srea-labs/dbx-mcp/pkg/cliconfig"
	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
	"github.com/srea-labs/dbx-mcp/pkg/validate"
)

var (
	toolsBaseURL string
	toolsTimeout int
)

// ToolOutput is one catalog entry in `tools --json` output.
type ToolOutput struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools an MCP endpoint advertises",
	Example: `  dbx-mcp tools --base-url http://localhost:8000
  dbx-mcp tools --base-url http://localhost:8000 --json`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVar(&toolsBaseURL, "base-url", "", "Base URL of the MCP server")
	toolsCmd.Flags().IntVar(&toolsTimeout, "timeout", cliconfig.DefaultTimeout, "HTTP timeout in seconds")
}

func runTools(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := clientConfig(cmd, toolsBaseURL, toolsTimeout)
	if err != nil {
		return reportFailure(out, err)
	}

	client := newMCPClient(cfg, clientLogger(cmd.ErrOrStderr(), false))
	tools, err := validate.NewRunner(client, out).Catalog(cmd.Context())
	if err != nil {
		return reportFailure(out, err)
	}

	catalog := make([]ToolOutput, 0, len(tools))
	for _, tool := range tools {
		entry := ToolOutput{
			Name:        mcpclient.StringField(tool, "name"),
			Description: mcpclient.StringField(tool, "description"),
		}
		if schema, ok := tool["inputSchema"].(map[string]any); ok {
			entry.InputSchema = schema
		}
		catalog = append(catalog, entry)
	}

	if jsonOutput {
		return output.JSON(out, catalog)
	}

	if len(catalog) == 0 {
		fmt.Fprintln(out, "No tools advertised")
		return nil
	}
	w := output.Table(out)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, t := range catalog {
		fmt.Fprintf(w, "%s\t%s\n", t.Name, validate.ShortDescription(t.Description))
	}
	return w.Flush()
}
