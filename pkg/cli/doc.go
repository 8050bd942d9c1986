// Package cli provides the command-line interface for dbx-mcp.
//
// Commands:
//   - serve: run the Databricks MCP server on the streamable-HTTP transport
//   - validate: run one validation scenario against an MCP endpoint
//   - tools: list the tools an endpoint advertises
//   - version: show build information
//
// Client commands print failures to standard output, prefixed with
// "HTTP error:" for transport and status failures and "Error:" otherwise,
// and exit with status 1.
//
// Usage:
//
//	dbx-mcp serve --port 8000
//	dbx-mcp validate --base-url https://mcp.example.com --mode discover
//	dbx-mcp validate --base-url http://localhost:8000 --mode validate --warehouse-id abc123
//	dbx-mcp tools --base-url http://localhost:8000 --json
package cli
