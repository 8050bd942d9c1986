// Package mcpclient is a minimal JSON-RPC-over-HTTP client for MCP servers
// speaking the streamable HTTP transport.
//
// A Client talks to exactly one endpoint, <base-url>/mcp. Every call is a
// single synchronous POST; the response body is either plain JSON or a
// text/event-stream body whose first "data: " line carries the JSON-RPC
// response. The first session id handed out by the server through the
// Mcp-Session-Id header is echoed on every later request.
//
// A Client is not safe for concurrent use. Callers issue one request at a time
// and call Initialize before anything else.
package mcpclient
