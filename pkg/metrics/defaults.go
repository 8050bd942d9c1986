package metrics

import "time"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Rejection reasons recorded before JSON-RPC dispatch.
const (
	RejectHost         = "host"
	RejectOrigin       = "origin"
	RejectContentType  = "content_type"
	RejectMethod       = "method"
	RejectSessionLimit = "session_limit"
)

// knownMethods bounds the cardinality of the method label.
var knownMethods = map[string]struct{}{
	"initialize":                {},
	"notifications/initialized": {},
	"ping":                      {},
	"tools/list":                {},
	"tools/call":                {},
}

// ServerMetrics is the set of series recorded by the MCP server.
type ServerMetrics struct {
	Registry *Registry

	RPCRequests    *Counter
	ToolCalls      *Counter
	ToolDuration   *Histogram
	SessionsActive *Gauge
	HTTPRejected   *Counter
}

// NewServerMetrics creates a registry with the server series registered.
func NewServerMetrics() *ServerMetrics {
	r := NewRegistry()
	return &ServerMetrics{
		Registry: r,
		RPCRequests: r.NewCounter("dbx_mcp_rpc_requests_total",
			"Total JSON-RPC requests handled", "method", "outcome"),
		ToolCalls: r.NewCounter("dbx_mcp_tool_calls_total",
			"Total tools/call executions", "tool", "outcome"),
		ToolDuration: r.NewHistogram("dbx_mcp_tool_duration_seconds",
			"Tool execution latency in seconds", DefaultBuckets, "tool"),
		SessionsActive: r.NewGauge("dbx_mcp_sessions_active",
			"Number of live MCP sessions"),
		HTTPRejected: r.NewCounter("dbx_mcp_http_rejected_total",
			"Requests refused before JSON-RPC dispatch", "reason"),
	}
}

// ObserveRPC counts one JSON-RPC request. Methods outside the served set
// are recorded as "other".
func (m *ServerMetrics) ObserveRPC(method string, failed bool) {
	if _, ok := knownMethods[method]; !ok {
		method = "other"
	}
	if vec, err := m.RPCRequests.WithLabels(method, outcome(failed)); err == nil {
		_ = vec.Inc()
	}
}

// ObserveTool counts one tool execution and records its duration.
func (m *ServerMetrics) ObserveTool(tool string, failed bool, d time.Duration) {
	if vec, err := m.ToolCalls.WithLabels(tool, outcome(failed)); err == nil {
		_ = vec.Inc()
	}
	if vec, err := m.ToolDuration.WithLabels(tool); err == nil {
		vec.Observe(d.Seconds())
	}
}

// Reject counts one request refused for reason.
func (m *ServerMetrics) Reject(reason string) {
	if vec, err := m.HTTPRejected.WithLabels(reason); err == nil {
		_ = vec.Inc()
	}
}

// SetSessions records the number of live sessions.
func (m *ServerMetrics) SetSessions(n int) {
	_ = m.SessionsActive.Set(float64(n))
}

func outcome(failed bool) string {
	if failed {
		return OutcomeError
	}
	return OutcomeOK
}
