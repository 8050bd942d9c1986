package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srea-labs/dbx-mcp/pkg/cli/internal/flags"
	"github.com/srea-labs/dbx-mcp/pkg/cli/internal/output"
	"github.com/srea-labs/dbx-mcp/pkg/cliconfig"
	"github.com/srea-labs/dbx-mcp/pkg/databricks"
	"github.com/srea-labs/dbx-mcp/pkg/logging"
	"github.com/srea-labs/dbx-mcp/pkg/mcp"
)

// serveFlags holds the values bound to serve's flags.
type serveFlags struct {
	host                   string
	port                   int
	path                   string
	dnsRebindingProtection bool
	allowedHosts           flags.StringSlice
	logLevel               string
	logFormat              string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Databricks MCP server (foreground)",
	Long: `Start the Databricks MCP server on the streamable-HTTP transport.

The server is meant to sit behind a reverse proxy, so DNS-rebinding protection
is off unless --dns-rebinding-protection is given. Workspace credentials are
read from DATABRICKS_HOST and DATABRICKS_TOKEN.`,
	Example: `  # Start with defaults (0.0.0.0:8000, path /mcp)
  dbx-mcp serve

  # Local only, with Host/Origin checks
  dbx-mcp serve --host 127.0.0.1 --dns-rebinding-protection

  # JSON logs for a log shipper
  dbx-mcp serve --log-format json --log-level debug`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServeWithFlags(cmd, &serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVar(&f.host, "host", cliconfig.DefaultHost, "Interface to bind")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", cliconfig.DefaultPort, "Port to bind (0 = any free port)")
	serveCmd.Flags().StringVar(&f.path, "path", cliconfig.DefaultPath, "HTTP path of the MCP endpoint")
	serveCmd.Flags().BoolVar(&f.dnsRebindingProtection, "dns-rebinding-protection", false, "Check Host and Origin headers against the allow lists")
	serveCmd.Flags().Var(&f.allowedHosts, "allowed-host", "Allowed Host header, host or host:* (repeatable)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", cliconfig.DefaultLogLevel, "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", cliconfig.DefaultLogFormat, "Log format (text, json)")
}

// runServeWithFlags is the core serve logic called by the cobra command.
func runServeWithFlags(cmd *cobra.Command, f *serveFlags) error {
	cfg, err := cliconfig.LoadAll()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})

	dbCfg, err := databricks.LoadConfig()
	if err != nil {
		return err
	}
	if err := dbCfg.Validate(); err != nil {
		return err
	}
	workspace := databricks.NewClient(dbCfg)
	workspace.SetLogger(log.With("component", "databricks"))

	serverCfg := buildServerConfig(cfg)
	server := mcp.NewServer(serverCfg, workspace)
	server.SetLogger(log.With("component", "mcp"))

	if err := server.Start(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting Databricks MCP Server on %s (reverse proxy enabled)\n", serverCfg.Address())
	log.Info("workspace configured", "host", workspace.Host(), "tools", len(server.Tools().List()))

	return runMainLoop(cmd.Context(), server, log)
}

// applyServeFlags layers explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *cliconfig.CLIConfig, f *serveFlags) {
	set := cmd.Flags().Changed
	if set("host") {
		cfg.Host = f.host
		cfg.Sources["host"] = cliconfig.SourceFlag
	}
	if set("port") {
		cfg.Port = f.port
		cfg.Sources["port"] = cliconfig.SourceFlag
	}
	if set("path") {
		cfg.Path = f.path
		cfg.Sources["path"] = cliconfig.SourceFlag
	}
	if set("dns-rebinding-protection") {
		cfg.DNSRebindingProtection = f.dnsRebindingProtection
		cfg.Sources["dnsRebindingProtection"] = cliconfig.SourceFlag
	}
	if set("allowed-host") {
		cfg.AllowedHosts = append([]string(nil), f.allowedHosts...)
		cfg.Sources["allowedHosts"] = cliconfig.SourceFlag
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
		cfg.Sources["logLevel"] = cliconfig.SourceFlag
	}
	if set("log-format") {
		cfg.LogFormat = f.logFormat
		cfg.Sources["logFormat"] = cliconfig.SourceFlag
	}
}

// buildServerConfig maps the resolved CLI config onto the MCP server config.
func buildServerConfig(cfg *cliconfig.CLIConfig) *mcp.Config {
	serverCfg := mcp.DefaultConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	if cfg.Path != "" {
		serverCfg.Path = cfg.Path
	}
	serverCfg.DNSRebindingProtection = cfg.DNSRebindingProtection
	if len(cfg.AllowedHosts) > 0 {
		serverCfg.AllowedHosts = append([]string(nil), cfg.AllowedHosts...)
	}
	return serverCfg
}

// runMainLoop blocks until SIGINT, SIGTERM or ctx cancellation, then stops
// the server.
func runMainLoop(ctx context.Context, server *mcp.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	if err := server.Stop(); err != nil {
		output.Warn(rootCmd.ErrOrStderr(), "MCP server shutdown error: %v", err)
	}
	log.Info("server stopped")
	return nil
}
