package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/srea-labs/dbx-mcp/pkg/databricks"
)

func strPtr(s string) *string { return &s }

func execTool(t *testing.T, ws Workspace, name string, args map[string]interface{}) *ToolResult {
	t.Helper()
	s := NewServer(DefaultConfig(), ws)
	result, err := s.Tools().Execute(context.Background(), name, args, NewSession())
	if err != nil {
		t.Fatalf("Execute(%s) error = %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("Execute(%s) returned no content", name)
	}
	return result
}

func decodeToolJSON(t *testing.T, result *ToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("tool text %q is not JSON: %v", result.Content[0].Text, err)
	}
	return out
}

func TestToolRegistry_Order(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)
	var names []string
	for _, def := range s.Tools().List() {
		names = append(names, def.Name)
		if def.InputSchema["type"] != "object" {
			t.Errorf("%s inputSchema type = %v", def.Name, def.InputSchema["type"])
		}
		if def.Description == "" {
			t.Errorf("%s has no description", def.Name)
		}
	}

	want := []string{"list_clusters", "list_warehouses", "list_catalogs", "list_schemas", "list_jobs", "execute_sql"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("List() = %v, want %v", names, want)
	}
	if s.Tools().Get("execute_sql") == nil {
		t.Error("Get(execute_sql) = nil")
	}
}

func TestToolRegistry_Register(t *testing.T) {
	t.Parallel()

	r := &ToolRegistry{byName: map[string]*Tool{}}
	noop := func(context.Context, map[string]interface{}, *MCPSession, *Server) (*ToolResult, error) {
		return ToolResultText("ok"), nil
	}

	if err := r.Register(&Tool{Definition: ToolDefinition{Name: "a", InputSchema: emptyObjectSchema()}, Handler: noop}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&Tool{Definition: ToolDefinition{Name: "a"}, Handler: noop}); err == nil {
		t.Error("duplicate Register() should fail")
	}
	if err := r.Register(&Tool{Definition: ToolDefinition{}, Handler: noop}); err == nil {
		t.Error("Register() without a name should fail")
	}
	bad := ToolDefinition{Name: "bad", InputSchema: map[string]interface{}{"type": 12}}
	if err := r.Register(&Tool{Definition: bad, Handler: noop}); err == nil {
		t.Error("Register() with an invalid schema should fail")
	}
}

func TestToolRegistry_Execute_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		wantText string
	}{
		{name: "unknown tool", tool: "drop_table", wantText: "tool not found: drop_table"},
		{name: "missing required", tool: "list_schemas", args: map[string]interface{}{}, wantText: "invalid arguments for list_schemas"},
		{name: "wrong type", tool: "list_schemas", args: map[string]interface{}{"catalog_name": float64(3)}, wantText: "catalog_name"},
		{name: "limit too high", tool: "list_jobs", args: map[string]interface{}{"limit": float64(1000)}, wantText: "limit"},
		{name: "limit not integer", tool: "list_jobs", args: map[string]interface{}{"limit": float64(2.5)}, wantText: "invalid arguments for list_jobs"},
		{name: "sql missing statement", tool: "execute_sql", args: map[string]interface{}{"warehouse_id": "w1"}, wantText: "statement"},
		{name: "blank catalog", tool: "list_schemas", args: map[string]interface{}{"catalog_name": "  "}, wantText: "catalog_name is required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ws := &fakeWorkspace{}
			result := execTool(t, ws, tt.tool, tt.args)
			if !result.IsError {
				t.Fatalf("IsError = false, text %q", result.Content[0].Text)
			}
			if !strings.Contains(result.Content[0].Text, tt.wantText) {
				t.Errorf("text = %q, want it to contain %q", result.Content[0].Text, tt.wantText)
			}
			if calls := ws.callLog(); len(calls) != 0 {
				t.Errorf("workspace called on invalid input: %v", calls)
			}
		})
	}
}

func TestTools_ListCalls(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{
		clusters:   []databricks.Cluster{{ClusterID: "c1", ClusterName: "shared", State: "RUNNING"}},
		warehouses: []databricks.Warehouse{{ID: "w1", Name: "Starter", State: "STOPPED"}},
		catalogs:   []databricks.Catalog{{Name: "main"}, {Name: "samples"}},
		jobs:       []databricks.Job{{JobID: 7, Settings: databricks.JobSettings{Name: "nightly"}}},
	}

	tests := []struct {
		tool      string
		args      map[string]interface{}
		key       string
		wantCount float64
	}{
		{tool: "list_clusters", key: "clusters", wantCount: 1},
		{tool: "list_warehouses", key: "warehouses", wantCount: 1},
		{tool: "list_catalogs", key: "catalogs", wantCount: 2},
		{tool: "list_jobs", args: map[string]interface{}{"limit": float64(10)}, key: "jobs", wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := execTool(t, ws, tt.tool, tt.args)
			if result.IsError {
				t.Fatalf("unexpected error result %q", result.Content[0].Text)
			}
			out := decodeToolJSON(t, result)
			if out["count"] != tt.wantCount {
				t.Errorf("count = %v, want %v", out["count"], tt.wantCount)
			}
			if _, ok := out[tt.key].([]interface{}); !ok {
				t.Errorf("%s missing from %v", tt.key, out)
			}
		})
	}

	ws.mu.Lock()
	limit := ws.lastLimit
	ws.mu.Unlock()
	if limit != 10 {
		t.Errorf("ListJobs limit = %d, want 10", limit)
	}
}

func TestTools_EmptyListsAreArrays(t *testing.T) {
	t.Parallel()

	result := execTool(t, &fakeWorkspace{}, "list_clusters", nil)
	if result.Content[0].Text != `{"clusters":[],"count":0}` {
		t.Errorf("text = %s", result.Content[0].Text)
	}
}

func TestTools_ListJobsDefaultLimit(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{}
	execTool(t, ws, "list_jobs", nil)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.lastLimit != defaultJobsLimit {
		t.Errorf("limit = %d, want %d", ws.lastLimit, defaultJobsLimit)
	}
}

func TestTools_NoWorkspace(t *testing.T) {
	t.Parallel()

	result := execTool(t, nil, "list_catalogs", nil)
	if !result.IsError || result.Content[0].Text != "databricks workspace not configured" {
		t.Errorf("result = %+v", result)
	}
}

func TestTools_WorkspaceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantText string
	}{
		{
			name:     "api error",
			err:      &databricks.APIError{StatusCode: 404, ErrorCode: "CATALOG_DOES_NOT_EXIST", Message: "Catalog 'x' does not exist."},
			wantText: "list_schemas failed: databricks api error (404 CATALOG_DOES_NOT_EXIST)",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("get schemas: %w", context.DeadlineExceeded),
			wantText: "list_schemas timed out",
		},
		{
			name:     "other",
			err:      errors.New("connection reset"),
			wantText: "list_schemas failed: connection reset",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := execTool(t, &fakeWorkspace{err: tt.err}, "list_schemas", map[string]interface{}{"catalog_name": "x"})
			if !result.IsError || !strings.HasPrefix(result.Content[0].Text, tt.wantText) {
				t.Errorf("result = %+v, want prefix %q", result, tt.wantText)
			}
		})
	}
}

func TestTools_ExecuteSQL(t *testing.T) {
	t.Parallel()

	resp := &databricks.StatementResponse{
		StatementID: "01ef",
		Status:      databricks.StatementStatus{State: databricks.StatementSucceeded},
		Manifest:    &databricks.ResultManifest{TotalRowCount: 1},
		Result:      &databricks.ResultData{DataArray: [][]*string{{strPtr("2026-10-17T00:00:00Z"), strPtr("me@example.com")}}},
	}
	resp.Manifest.Schema.Columns = []databricks.Column{{Name: "now", Position: 0}, {Name: "user", Position: 1}}

	ws := &fakeWorkspace{statement: resp}
	result := execTool(t, ws, "execute_sql", map[string]interface{}{
		"warehouse_id": "w1",
		"statement":    "SELECT current_timestamp() as now, current_user() as user",
	})
	if result.IsError {
		t.Fatalf("unexpected error %q", result.Content[0].Text)
	}

	var out StatementResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.StatementID != "01ef" || out.State != "SUCCEEDED" || out.RowCount != 1 {
		t.Errorf("result = %+v", out)
	}
	if strings.Join(out.Columns, ",") != "now,user" {
		t.Errorf("columns = %v", out.Columns)
	}
	if out.Rows[0]["user"] != "me@example.com" {
		t.Errorf("rows = %v", out.Rows)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.lastWarehouse != "w1" || !strings.HasPrefix(ws.lastStatement, "SELECT current_timestamp()") {
		t.Errorf("workspace saw %q / %q", ws.lastWarehouse, ws.lastStatement)
	}
}

func TestTools_ExecuteSQL_Failed(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{statement: &databricks.StatementResponse{
		StatementID: "01ef",
		Status: databricks.StatementStatus{
			State: databricks.StatementFailed,
			Error: &databricks.StatementError{ErrorCode: "BAD_REQUEST", Message: "[PARSE_SYNTAX_ERROR] Syntax error"},
		},
	}}
	result := execTool(t, ws, "execute_sql", map[string]interface{}{"warehouse_id": "w1", "statement": "SELEC 1"})
	if !result.IsError || result.Content[0].Text != "statement failed: [PARSE_SYNTAX_ERROR] Syntax error" {
		t.Errorf("result = %+v", result)
	}
}

func TestTools_ExecuteSQL_Pending(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{statement: &databricks.StatementResponse{
		StatementID: "01ef",
		Status:      databricks.StatementStatus{State: databricks.StatementPending},
	}}
	result := execTool(t, ws, "execute_sql", map[string]interface{}{"warehouse_id": "w1", "statement": "SELECT 1"})
	if result.IsError {
		t.Fatalf("pending statement should not be an error: %q", result.Content[0].Text)
	}
	out := decodeToolJSON(t, result)
	if out["state"] != "PENDING" || out["row_count"] != float64(0) {
		t.Errorf("out = %v", out)
	}
}
