package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/srea-labs/dbx-mcp/pkg/cliconfig"
	"github.com/srea-labs/dbx-mcp/pkg/logging"
	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
	"github.com/srea-labs/dbx-mcp/pkg/validate"
)

var (
	validateBaseURL     string
	validateWarehouseID string
	validateMode        string
	validateTimeout     int
	validateVerbose     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a validation scenario against an MCP endpoint",
	Long: `Run one scripted scenario against a streamable-HTTP MCP endpoint.

Modes:
  init          initialize and print the handshake response
  list-tools    print the tool count and the first tools
  discover      print every advertised tool name
  validate      call the core Databricks tools one by one
  conversation  replay a short scripted conversation`,
	Example: `  dbx-mcp validate --base-url https://mcp.example.com
  dbx-mcp validate --base-url http://localhost:8000 --mode validate --warehouse-id abc123`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateBaseURL, "base-url", "", "Base URL of the MCP server, e.g. https://<fqdn>")
	validateCmd.Flags().StringVar(&validateWarehouseID, "warehouse-id", "", "Warehouse ID for SQL tests")
	validateCmd.Flags().StringVar(&validateMode, "mode", cliconfig.DefaultMode, "Validation mode: "+validate.ModeNames())
	validateCmd.Flags().IntVar(&validateTimeout, "timeout", cliconfig.DefaultTimeout, "HTTP timeout in seconds")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Log each request to stderr")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := clientConfig(cmd, validateBaseURL, validateTimeout)
	if err != nil {
		return reportFailure(out, err)
	}
	if cmd.Flags().Changed("warehouse-id") {
		cfg.WarehouseID = validateWarehouseID
		cfg.Sources["warehouseId"] = cliconfig.SourceFlag
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = validateMode
		cfg.Sources["mode"] = cliconfig.SourceFlag
	}

	mode, err := validate.ParseMode(cfg.Mode)
	if err != nil {
		return reportFailure(out, err)
	}

	log := clientLogger(cmd.ErrOrStderr(), validateVerbose)
	client := newMCPClient(cfg, log)
	runner := validate.NewRunner(client, out,
		validate.WithWarehouseID(cfg.WarehouseID),
		validate.WithLogger(log),
	)

	if err := runner.Run(cmd.Context(), mode); err != nil {
		return reportFailure(out, err)
	}
	return nil
}

// clientConfig resolves the layered CLI config and applies the --base-url
// and --timeout flags on top.
func clientConfig(cmd *cobra.Command, baseURL string, timeout int) (*cliconfig.CLIConfig, error) {
	cfg, err := cliconfig.LoadAll()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = baseURL
		cfg.Sources["baseUrl"] = cliconfig.SourceFlag
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeout
		cfg.Sources["timeout"] = cliconfig.SourceFlag
	}
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newMCPClient(cfg *cliconfig.CLIConfig, log *slog.Logger) *mcpclient.Client {
	return mcpclient.New(cfg.BaseURL,
		mcpclient.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
		mcpclient.WithLogger(log),
	)
}

// clientLogger writes debug records to w when verbose, and nothing otherwise.
func clientLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return logging.Nop()
	}
	return logging.New(logging.Config{
		Level:     logging.LevelDebug,
		Format:    logging.FormatText,
		Output:    w,
		Component: "mcpclient",
	})
}

// reportFailure prints err to w the way every client command does and
// returns an ExitError so Run does not print it again.
func reportFailure(w io.Writer, err error) error {
	var httpErr *mcpclient.HTTPError
	if errors.As(err, &httpErr) {
		fmt.Fprintf(w, "HTTP error: %v\n", httpErr)
		if httpErr.StatusCode != 0 {
			fmt.Fprintln(w, validate.Truncate(httpErr.Body, validate.MaxBodyChars))
		}
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return &ExitError{Code: 1, Err: err}
}
