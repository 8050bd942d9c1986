package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/srea-labs/dbx-mcp/pkg/databricks"
)

const (
	defaultJobsLimit = 20
	maxJobsLimit     = 100
)

// Workspace is the Databricks surface the tools call. *databricks.Client
// implements it.
type Workspace interface {
	ListClusters(ctx context.Context) ([]databricks.Cluster, error)
	ListWarehouses(ctx context.Context) ([]databricks.Warehouse, error)
	ListCatalogs(ctx context.Context) ([]databricks.Catalog, error)
	ListSchemas(ctx context.Context, catalog string) ([]databricks.Schema, error)
	ListJobs(ctx context.Context, limit int) ([]databricks.Job, error)
	ExecuteStatement(ctx context.Context, warehouseID, statement string) (*databricks.StatementResponse, error)
}

var _ Workspace = (*databricks.Client)(nil)

// requireWorkspace returns an error result if no workspace is configured.
func requireWorkspace(server *Server) *ToolResult {
	if server.workspace == nil {
		return ToolResultError("databricks workspace not configured")
	}
	return nil
}

// workspaceError renders a backend failure for the tool caller.
func workspaceError(tool string, err error) *ToolResult {
	var apiErr *databricks.APIError
	if errors.As(err, &apiErr) {
		return ToolResultErrorf("%s failed: %s", tool, apiErr.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ToolResultErrorf("%s timed out talking to the workspace", tool)
	}
	return ToolResultErrorf("%s failed: %v", tool, err)
}

func handleListClusters(ctx context.Context, _ map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}
	clusters, err := server.workspace.ListClusters(ctx)
	if err != nil {
		return workspaceError("list_clusters", err), nil
	}
	if clusters == nil {
		clusters = []databricks.Cluster{}
	}
	return ToolResultJSON(map[string]interface{}{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

func handleListWarehouses(ctx context.Context, _ map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}
	warehouses, err := server.workspace.ListWarehouses(ctx)
	if err != nil {
		return workspaceError("list_warehouses", err), nil
	}
	if warehouses == nil {
		warehouses = []databricks.Warehouse{}
	}
	return ToolResultJSON(map[string]interface{}{
		"warehouses": warehouses,
		"count":      len(warehouses),
	})
}

func handleListCatalogs(ctx context.Context, _ map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}
	catalogs, err := server.workspace.ListCatalogs(ctx)
	if err != nil {
		return workspaceError("list_catalogs", err), nil
	}
	if catalogs == nil {
		catalogs = []databricks.Catalog{}
	}
	return ToolResultJSON(map[string]interface{}{
		"catalogs": catalogs,
		"count":    len(catalogs),
	})
}

func handleListSchemas(ctx context.Context, args map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	catalog := strings.TrimSpace(getString(args, "catalog_name", ""))
	if catalog == "" {
		return ToolResultError("catalog_name is required"), nil
	}
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}
	schemas, err := server.workspace.ListSchemas(ctx, catalog)
	if err != nil {
		return workspaceError("list_schemas", err), nil
	}
	if schemas == nil {
		schemas = []databricks.Schema{}
	}
	return ToolResultJSON(map[string]interface{}{
		"catalog_name": catalog,
		"schemas":      schemas,
		"count":        len(schemas),
	})
}

func handleListJobs(ctx context.Context, args map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	limit := getInt(args, "limit", defaultJobsLimit)
	if limit < 1 || limit > maxJobsLimit {
		return ToolResultErrorf("limit must be between 1 and %d", maxJobsLimit), nil
	}
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}
	jobs, err := server.workspace.ListJobs(ctx, limit)
	if err != nil {
		return workspaceError("list_jobs", err), nil
	}
	if jobs == nil {
		jobs = []databricks.Job{}
	}
	return ToolResultJSON(map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func handleExecuteSQL(ctx context.Context, args map[string]interface{}, _ *MCPSession, server *Server) (*ToolResult, error) {
	warehouseID := strings.TrimSpace(getString(args, "warehouse_id", ""))
	statement := strings.TrimSpace(getString(args, "statement", ""))
	if warehouseID == "" || statement == "" {
		return ToolResultError("warehouse_id and statement are required"), nil
	}
	if res := requireWorkspace(server); res != nil {
		return res, nil
	}

	resp, err := server.workspace.ExecuteStatement(ctx, warehouseID, statement)
	if err != nil {
		return workspaceError("execute_sql", err), nil
	}

	switch resp.Status.State {
	case databricks.StatementFailed, databricks.StatementCanceled, databricks.StatementClosed:
		msg := "statement " + strings.ToLower(resp.Status.State)
		if resp.Status.Error != nil && resp.Status.Error.Message != "" {
			msg += ": " + resp.Status.Error.Message
		}
		return ToolResultError(msg), nil
	}

	return ToolResultJSON(statementResult(resp))
}

func statementResult(resp *databricks.StatementResponse) *StatementResult {
	out := &StatementResult{
		StatementID: resp.StatementID,
		State:       resp.Status.State,
		Rows:        resp.Rows(),
	}
	if out.Rows == nil {
		out.Rows = []map[string]any{}
	}
	out.RowCount = len(out.Rows)
	if resp.Manifest != nil {
		for _, col := range resp.Manifest.Schema.Columns {
			out.Columns = append(out.Columns, col.Name)
		}
		out.Truncated = resp.Manifest.Truncated
	}
	return out
}
