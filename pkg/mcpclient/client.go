package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/srea-labs/dbx-mcp/pkg/logging"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// Client performs JSON-RPC calls against a single MCP endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	clientInfo ClientInfo
	log        *slog.Logger

	sessionID string
	requestID int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is used as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientInfo overrides the identity sent in initialize.
func WithClientInfo(info ClientInfo) Option {
	return func(c *Client) {
		c.clientInfo = info
	}
}

// WithLogger sets the debug logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for baseURL. Trailing slashes are dropped and "/mcp"
// is appended.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + EndpointPath,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		clientInfo: DefaultClientInfo,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL every request is posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SessionID returns the captured session id, or "" before the server sent one.
func (c *Client) SessionID() string {
	return c.sessionID
}

// LastRequestID returns the id of the most recent request, 0 before the first.
func (c *Client) LastRequestID() int64 {
	return c.requestID
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) (Response, error) {
	return c.request(ctx, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    c.clientInfo.Name,
			"version": c.clientInfo.Version,
		},
	})
}

// ListTools requests the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) (Response, error) {
	return c.request(ctx, "tools/list", nil)
}

// CallTool invokes a tool by name.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (Response, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	return c.request(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
}

func (c *Client) request(ctx context.Context, method string, params map[string]any) (Response, error) {
	c.requestID++
	if params == nil {
		params = map[string]any{}
	}

	payload, err := json.Marshal(Request{
		JSONRPC: jsonrpcVersion,
		ID:      c.requestID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", acceptHeader)
	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}

	c.log.Debug("mcp request", "method", method, "id", c.requestID, "session", c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &HTTPError{URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &HTTPError{URL: c.endpoint, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &HTTPError{
			URL:        c.endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if c.sessionID == "" {
		if sid := resp.Header.Get(HeaderSessionID); sid != "" {
			c.sessionID = sid
			c.log.Debug("mcp session established", "session", sid)
		}
	}

	c.log.Debug("mcp response", "method", method, "id", c.requestID, "status", resp.StatusCode,
		"contentType", resp.Header.Get("Content-Type"), "bytes", len(body))

	return DecodeResponse(string(body))
}
