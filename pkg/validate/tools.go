package validate

import (
	"strings"

	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
)

// WarehouseToolCandidates are the warehouse listing tool names tried in order.
var WarehouseToolCandidates = []string{
	"list_warehouses",
	"list_sql_warehouses",
	"list_warehouses_v2",
	"list_sql_warehouses_v2",
}

// PickTool returns the first candidate advertised in tools, or "".
func PickTool(tools []map[string]any, candidates []string) string {
	available := make(map[string]bool, len(tools))
	for _, tool := range tools {
		available[mcpclient.StringField(tool, "name")] = true
	}
	for _, name := range candidates {
		if available[name] {
			return name
		}
	}
	return ""
}

// FindToolWithKeyword returns the first advertised tool whose name contains
// keyword, or "".
func FindToolWithKeyword(tools []map[string]any, keyword string) string {
	for _, tool := range tools {
		name := mcpclient.StringField(tool, "name")
		if strings.Contains(name, keyword) {
			return name
		}
	}
	return ""
}

// WarehouseTool picks the warehouse listing tool: a known name first, then
// any tool with "warehouse" in its name.
func WarehouseTool(tools []map[string]any) string {
	if name := PickTool(tools, WarehouseToolCandidates); name != "" {
		return name
	}
	return FindToolWithKeyword(tools, "warehouse")
}
