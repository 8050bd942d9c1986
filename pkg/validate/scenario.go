package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/srea-labs/dbx-mcp/pkg/logging"
	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
)

// Mode names a scenario.
type Mode string

// Scenario modes.
const (
	ModeInit         Mode = "init"
	ModeListTools    Mode = "list-tools"
	ModeDiscover     Mode = "discover"
	ModeValidate     Mode = "validate"
	ModeConversation Mode = "conversation"
)

// Modes lists every scenario in help order.
var Modes = []Mode{ModeInit, ModeListTools, ModeDiscover, ModeValidate, ModeConversation}

// ErrUnknownMode is returned for a mode outside Modes.
var ErrUnknownMode = errors.New("unknown mode")

// SmokeTestSQL is the statement sent to execute_sql.
const SmokeTestSQL = "SELECT current_timestamp() as now, current_user() as user"

// ParseMode validates s against Modes.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s (want one of %s)", ErrUnknownMode, s, ModeNames())
}

// ModeNames returns the modes joined with "|".
func ModeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, "|")
}

// Client is the subset of *mcpclient.Client the scenarios use.
type Client interface {
	Initialize(ctx context.Context) (mcpclient.Response, error)
	ListTools(ctx context.Context) (mcpclient.Response, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (mcpclient.Response, error)
}

// prompt is one step of the conversation scenario.
type prompt struct {
	Tool  string
	Args  map[string]any
	Label string
}

// conversationPrompts mimic the questions an assistant would answer with tools.
func conversationPrompts() []prompt {
	return []prompt{
		{Tool: "list_clusters", Args: map[string]any{}, Label: "What compute clusters are running?"},
		{Tool: "list_schemas", Args: map[string]any{"catalog_name": "main"}, Label: "What schemas exist in main?"},
		{Tool: "list_catalogs", Args: map[string]any{}, Label: "What catalogs are available?"},
		{Tool: "list_jobs", Args: map[string]any{"limit": 10}, Label: "What jobs are configured?"},
	}
}

// Runner executes scenarios and writes their report to out.
type Runner struct {
	client      Client
	out         io.Writer
	warehouseID string
	log         *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWarehouseID enables the SQL execution steps.
func WithWarehouseID(id string) RunnerOption {
	return func(r *Runner) {
		r.warehouseID = strings.TrimSpace(id)
	}
}

// WithLogger sets the operational logger. Reports always go to out.
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner creates a scenario runner.
func NewRunner(client Client, out io.Writer, opts ...RunnerOption) *Runner {
	r := &Runner{
		client: client,
		out:    out,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run dispatches to the scenario named by mode.
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	r.log.Debug("running scenario", "mode", mode)

	switch mode {
	case ModeInit:
		return r.RunInitialize(ctx)
	case ModeListTools:
		return r.RunListTools(ctx)
	case ModeDiscover:
		return r.RunDiscover(ctx)
	case ModeValidate:
		return r.RunValidation(ctx)
	case ModeConversation:
		return r.RunConversation(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

// RunInitialize performs the handshake and prints the response.
func (r *Runner) RunInitialize(ctx context.Context) error {
	resp, err := r.client.Initialize(ctx)
	if err != nil {
		return err
	}
	printJSON(r.out, resp.Raw())
	return nil
}

// RunListTools prints the tool count and the first tools with descriptions.
func (r *Runner) RunListTools(ctx context.Context) error {
	if _, err := r.client.Initialize(ctx); err != nil {
		return err
	}
	resp, err := r.client.ListTools(ctx)
	if err != nil {
		return err
	}
	printTools(r.out, resp)
	return nil
}

// RunDiscover prints every advertised tool name in catalog order.
func (r *Runner) RunDiscover(ctx context.Context) error {
	tools, err := r.Catalog(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Found %d tools\n", len(tools))
	for _, tool := range tools {
		fmt.Fprintf(r.out, "- %s\n", mcpclient.StringField(tool, "name"))
	}
	return nil
}

// Catalog initializes the session and returns the advertised tools.
func (r *Runner) Catalog(ctx context.Context) ([]map[string]any, error) {
	if _, err := r.client.Initialize(ctx); err != nil {
		return nil, err
	}
	resp, err := r.client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Tools(), nil
}

// RunValidation exercises the core Databricks tools one by one.
//
// list_clusters, list_catalogs and list_jobs are called without consulting
// the catalog; only the warehouse tool is looked up.
func (r *Runner) RunValidation(ctx context.Context) error {
	tools, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	if err := r.callAndPrint(ctx, "Test: list_clusters", "list_clusters", map[string]any{}); err != nil {
		return err
	}

	if warehouseTool := WarehouseTool(tools); warehouseTool != "" {
		if err := r.callAndPrint(ctx, "Test: "+warehouseTool, warehouseTool, map[string]any{}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(r.out, "Skipping warehouse listing (no warehouse tool advertised)")
	}

	if err := r.callAndPrint(ctx, "Test: list_catalogs", "list_catalogs", map[string]any{}); err != nil {
		return err
	}
	if err := r.callAndPrint(ctx, "Test: list_jobs", "list_jobs", map[string]any{"limit": 10}); err != nil {
		return err
	}

	if r.warehouseID == "" {
		fmt.Fprintln(r.out, "Skipping execute_sql (no warehouse ID provided)")
		return nil
	}
	return r.callAndPrint(ctx, "Test: execute_sql", "execute_sql", r.sqlArgs())
}

// RunConversation walks through assistant-style prompts.
func (r *Runner) RunConversation(ctx context.Context) error {
	if _, err := r.client.Initialize(ctx); err != nil {
		return err
	}

	for _, p := range conversationPrompts() {
		if err := r.callAndPrint(ctx, "Prompt: "+p.Label, p.Tool, p.Args); err != nil {
			return err
		}
	}

	if r.warehouseID == "" {
		fmt.Fprintln(r.out, "Skipping SQL prompt (no warehouse ID provided)")
		return nil
	}
	return r.callAndPrint(ctx, "Prompt: run SQL query", "execute_sql", r.sqlArgs())
}

func (r *Runner) sqlArgs() map[string]any {
	return map[string]any{
		"warehouse_id": r.warehouseID,
		"statement":    SmokeTestSQL,
	}
}

func (r *Runner) callAndPrint(ctx context.Context, heading, tool string, args map[string]any) error {
	fmt.Fprintln(r.out, heading)
	resp, err := r.client.CallTool(ctx, tool, args)
	if err != nil {
		return err
	}
	printToolResult(r.out, resp)
	return nil
}
