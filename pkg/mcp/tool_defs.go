package mcp

// allToolDefinitions returns the workspace tools in display order.
func allToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Compute
		defListClusters,
		defListWarehouses,

		// Unity Catalog
		defListCatalogs,
		defListSchemas,

		// Jobs
		defListJobs,

		// SQL
		defExecuteSQL,
	}
}

func emptyObjectSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

var defListClusters = ToolDefinition{
	Name:        "list_clusters",
	Description: "List all compute clusters in the Databricks workspace with their ID, name, state and Spark version.",
	InputSchema: emptyObjectSchema(),
}

var defListWarehouses = ToolDefinition{
	Name:        "list_warehouses",
	Description: "List SQL warehouses with their ID, name, state and size. Use a warehouse ID with execute_sql.",
	InputSchema: emptyObjectSchema(),
}

var defListCatalogs = ToolDefinition{
	Name:        "list_catalogs",
	Description: "List Unity Catalog catalogs visible to the caller.",
	InputSchema: emptyObjectSchema(),
}

var defListSchemas = ToolDefinition{
	Name:        "list_schemas",
	Description: "List the schemas of a Unity Catalog catalog.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"catalog_name": map[string]interface{}{
				"type":        "string",
				"description": "Catalog to list schemas from (e.g., main)",
				"minLength":   1,
			},
		},
		"required": []string{"catalog_name"},
	},
}

var defListJobs = ToolDefinition{
	Name:        "list_jobs",
	Description: "List jobs defined in the workspace, newest first.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of jobs to return",
				"minimum":     1,
				"maximum":     maxJobsLimit,
				"default":     defaultJobsLimit,
			},
		},
	},
}

var defExecuteSQL = ToolDefinition{
	Name:        "execute_sql",
	Description: "Run a SQL statement on a SQL warehouse and return the rows inline. Long-running statements that do not finish within the wait timeout are reported with their current state.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"warehouse_id": map[string]interface{}{
				"type":        "string",
				"description": "SQL warehouse ID (see list_warehouses)",
				"minLength":   1,
			},
			"statement": map[string]interface{}{
				"type":        "string",
				"description": "SQL statement to execute",
				"minLength":   1,
			},
		},
		"required": []string{"warehouse_id", "statement"},
	},
}
