// Package metrics provides Prometheus-compatible metrics for the MCP server.
//
// Metrics are exposed in the Prometheus text exposition format
// (text/plain; version=0.0.4). Supported types are Counter, Gauge and
// Histogram, each keyed by a fixed list of label names. All metrics are safe
// for concurrent use.
//
// # Server Metrics
//
// NewServerMetrics registers the series the MCP server records:
//
//   - dbx_mcp_rpc_requests_total: JSON-RPC requests (labels: method, outcome)
//   - dbx_mcp_tool_calls_total: tools/call executions (labels: tool, outcome)
//   - dbx_mcp_tool_duration_seconds: tool execution latency (labels: tool)
//   - dbx_mcp_sessions_active: live sessions
//   - dbx_mcp_http_rejected_total: requests refused before dispatch (labels: reason)
//
// # Usage
//
//	m := metrics.NewServerMetrics()
//	m.ObserveTool("list_clusters", false, 120*time.Millisecond)
//	http.Handle("/metrics", m.Registry.Handler())
package metrics
