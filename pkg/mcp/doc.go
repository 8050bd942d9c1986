// Package mcp implements a Model Context Protocol (MCP) server over the
// streamable HTTP transport, exposing a Databricks workspace as tools.
//
// # Transport
//
// Clients POST JSON-RPC 2.0 messages to the configured path (default /mcp).
// initialize creates a session and returns its id in the Mcp-Session-Id
// header; every later request must echo it. A reply is written as a single
// SSE "message" event when the request's Accept header names
// text/event-stream, otherwise as plain JSON. DELETE ends a session and
// GET /health reports liveness. GET /metrics serves Prometheus metrics
// unless Config.MetricsPath is empty.
//
// # Tools
//
//   - list_clusters, list_warehouses
//   - list_catalogs, list_schemas
//   - list_jobs
//   - execute_sql
//
// Arguments are checked against each tool's inputSchema before the handler
// runs. Workspace failures are returned as tool results with isError set.
//
// # Security
//
// With DNS rebinding protection on, the Host header must match AllowedHosts
// and any Origin header must match AllowedOrigins. Deployments behind a
// reverse proxy turn the protection off.
package mcp
