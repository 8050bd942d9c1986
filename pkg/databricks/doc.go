// Package databricks is a small REST client for the Databricks workspace APIs
// the MCP tools proxy to: clusters, SQL warehouses, Unity Catalog, jobs and
// SQL statement execution.
//
// Credentials come from the environment:
//
//	DATABRICKS_HOST     workspace URL, e.g. https://adb-123.4.azuredatabricks.net
//	DATABRICKS_TOKEN    personal access token or OAuth bearer token
//	DATABRICKS_TIMEOUT  per-request timeout (default 30s)
package databricks
