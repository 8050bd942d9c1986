package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const jsonrpcVersion = "2.0"

// ParseRequest reads one JSON-RPC request from r. Batch arrays are refused,
// and a body cut off by http.MaxBytesReader is reported as an invalid
// request rather than a parse error.
func ParseRequest(r io.Reader) (*JSONRPCRequest, *JSONRPCError) {
	data, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, InvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, ParseError(err.Error())
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return nil, InvalidRequestError("batch requests are not supported")
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ParseError(err.Error())
	}
	if req.JSONRPC != jsonrpcVersion {
		return nil, InvalidRequestError(`jsonrpc must be "2.0"`)
	}
	if req.Method == "" {
		return nil, InvalidRequestError("method is required")
	}
	return &req, nil
}

// UnmarshalParamsRequired decodes params into T, failing with invalid
// params when they are absent or malformed.
func UnmarshalParamsRequired[T any](params json.RawMessage) (*T, *JSONRPCError) {
	if len(params) == 0 || string(params) == "null" {
		return nil, InvalidParamsError("params required")
	}

	var result T
	if err := json.Unmarshal(params, &result); err != nil {
		return nil, InvalidParamsError(err.Error())
	}
	return &result, nil
}

// encodeJSON marshals v without HTML escaping, so SQL text and URLs in
// tool output reach the client as written.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalResponse encodes a JSON-RPC response.
func MarshalResponse(resp *JSONRPCResponse) ([]byte, error) {
	return encodeJSON(resp)
}

// ToolResultText wraps text in a single content block.
func ToolResultText(text string) *ToolResult {
	return &ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// ToolResultJSON encodes data as the text of a single content block.
func ToolResultJSON(data any) (*ToolResult, error) {
	payload, err := encodeJSON(data)
	if err != nil {
		return nil, err
	}
	return ToolResultText(string(payload)), nil
}

// ToolResultError reports a failed tool call to the client.
func ToolResultError(message string) *ToolResult {
	res := ToolResultText(message)
	res.IsError = true
	return res
}

// ToolResultErrorf is ToolResultError with fmt formatting.
func ToolResultErrorf(format string, args ...any) *ToolResult {
	return ToolResultError(fmt.Sprintf(format, args...))
}
