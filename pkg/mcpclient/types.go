package mcpclient

import "encoding/json"

// JSON-RPC and MCP constants used by the client.
const (
	// ProtocolVersion is sent in the initialize request.
	ProtocolVersion = "2024-11-05"

	// HeaderSessionID carries the server-issued session id in both directions.
	HeaderSessionID = "Mcp-Session-Id"

	// EndpointPath is appended to the base URL.
	EndpointPath = "/mcp"

	jsonrpcVersion = "2.0"
	acceptHeader   = "application/json, text/event-stream"
)

// ClientInfo identifies the client in the initialize request.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultClientInfo is the identity the validation tool reports.
var DefaultClientInfo = ClientInfo{Name: "mcp-validate", Version: "1.0"}

// Request is an outbound JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Response is a decoded JSON-RPC response object. Numbers decode as
// json.Number, and the bytes the server sent are kept so the response can be
// printed with its original key order and numeric text.
type Response struct {
	fields map[string]any
	raw    json.RawMessage
}

// NewResponse builds a Response from already-decoded fields. Its raw form is
// the JSON encoding of fields.
func NewResponse(fields map[string]any) Response {
	raw, err := json.Marshal(fields)
	if err != nil {
		raw = nil
	}
	return Response{fields: fields, raw: raw}
}

// IsZero reports whether r holds no decoded response.
func (r Response) IsZero() bool {
	return r.fields == nil && r.raw == nil
}

// Fields returns the top-level members.
func (r Response) Fields() map[string]any {
	return r.fields
}

// Get returns the top-level member key, or nil.
func (r Response) Get(key string) any {
	return r.fields[key]
}

// Raw returns the response object exactly as received.
func (r Response) Raw() json.RawMessage {
	return r.raw
}

// MarshalJSON emits the received bytes unchanged.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(r.fields)
}

// Result returns the "result" member, or nil when absent or not an object.
func (r Response) Result() map[string]any {
	result, _ := r.fields["result"].(map[string]any)
	return result
}

// Error returns the "error" member, or nil when absent or not an object.
func (r Response) Error() map[string]any {
	rpcErr, _ := r.fields["error"].(map[string]any)
	return rpcErr
}

// Tools returns result.tools as a list of objects. Non-object entries are
// skipped.
func (r Response) Tools() []map[string]any {
	return objectList(r.Result(), "tools")
}

// Content returns result.content as a list of objects, and whether
// result.content was present at all.
func (r Response) Content() ([]map[string]any, bool) {
	result := r.Result()
	if result == nil {
		return nil, false
	}
	if _, ok := result["content"]; !ok {
		return nil, false
	}
	return objectList(result, "content"), true
}

func objectList(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// StringField returns m[key] when it is a string, else "".
func StringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
