package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/srea-labs/dbx-mcp/internal/id"
	"github.com/srea-labs/dbx-mcp/pkg/databricks"
	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
)

// fakeWorkspace records calls and returns canned data.
type fakeWorkspace struct {
	mu sync.Mutex

	clusters   []databricks.Cluster
	warehouses []databricks.Warehouse
	catalogs   []databricks.Catalog
	schemas    []databricks.Schema
	jobs       []databricks.Job
	statement  *databricks.StatementResponse
	err        error

	calls         []string
	lastCatalog   string
	lastLimit     int
	lastWarehouse string
	lastStatement string
}

func (f *fakeWorkspace) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeWorkspace) ListClusters(context.Context) ([]databricks.Cluster, error) {
	return f.clusters, f.record("clusters")
}

func (f *fakeWorkspace) ListWarehouses(context.Context) ([]databricks.Warehouse, error) {
	return f.warehouses, f.record("warehouses")
}

func (f *fakeWorkspace) ListCatalogs(context.Context) ([]databricks.Catalog, error) {
	return f.catalogs, f.record("catalogs")
}

func (f *fakeWorkspace) ListSchemas(_ context.Context, catalog string) ([]databricks.Schema, error) {
	f.mu.Lock()
	f.lastCatalog = catalog
	f.mu.Unlock()
	return f.schemas, f.record("schemas")
}

func (f *fakeWorkspace) ListJobs(_ context.Context, limit int) ([]databricks.Job, error) {
	f.mu.Lock()
	f.lastLimit = limit
	f.mu.Unlock()
	return f.jobs, f.record("jobs")
}

func (f *fakeWorkspace) ExecuteStatement(_ context.Context, warehouseID, statement string) (*databricks.StatementResponse, error) {
	f.mu.Lock()
	f.lastWarehouse = warehouseID
	f.lastStatement = statement
	f.mu.Unlock()
	if err := f.record("sql"); err != nil {
		return nil, err
	}
	return f.statement, nil
}

func (f *fakeWorkspace) catalog() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCatalog
}

func (f *fakeWorkspace) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestServer(t *testing.T, ws Workspace) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DNSRebindingProtection = false
	s := NewServer(cfg, ws)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postRPC(t *testing.T, url, sessionID, accept, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/mcp", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readRPC(t *testing.T, resp *http.Response) JSONRPCResponse {
	t.Helper()
	var out JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

const initBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`

func TestServer_Initialize_JSON(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, &fakeWorkspace{})

	resp := postRPC(t, ts.URL, "", "application/json", initBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
	sessionID := resp.Header.Get(HeaderSessionID)
	if !id.IsSession(sessionID) {
		t.Fatalf("Mcp-Session-Id = %q, want a UUID", sessionID)
	}

	out := readRPC(t, resp)
	result, _ := out.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v, want echoed 2024-11-05", result["protocolVersion"])
	}
	info, _ := result["serverInfo"].(map[string]interface{})
	if info["name"] != ServerName {
		t.Errorf("serverInfo.name = %v", info["name"])
	}

	session := s.Sessions().Get(sessionID)
	if session == nil {
		t.Fatal("session not stored")
	}
	if session.GetState() != SessionStateInitialized {
		t.Errorf("state = %v, want initialized", session.GetState())
	}
	if session.GetClientInfo().Name != "test" {
		t.Errorf("client name = %q", session.GetClientInfo().Name)
	}
}

func TestServer_Initialize_SSE(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	resp := postRPC(t, ts.URL, "", "application/json, text/event-stream", initBody)

	if ct := resp.Header.Get("Content-Type"); ct != ContentTypeEventStream {
		t.Fatalf("Content-Type = %q, want event stream", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	text := string(raw)
	if !strings.HasPrefix(text, "id: 1\nevent: message\ndata: {") {
		t.Errorf("body = %q, want one SSE message event", text)
	}

	decoded, err := mcpclient.DecodeResponse(text)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.Result()["protocolVersion"] != "2024-11-05" {
		t.Errorf("decoded result = %v", decoded.Result())
	}
}

func TestServer_Initialize_UnknownVersion(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"1999-01-01","capabilities":{},"clientInfo":{"name":"old","version":"0"}}}`
	out := readRPC(t, postRPC(t, ts.URL, "", "application/json", body))

	result, _ := out.Result.(map[string]interface{})
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion = %v, want %s", result["protocolVersion"], ProtocolVersion)
	}
}

func TestServer_SessionErrors(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})
	list := `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`

	tests := []struct {
		name       string
		sessionID  string
		wantStatus int
		wantCode   int
	}{
		{name: "missing session", sessionID: "", wantStatus: http.StatusBadRequest, wantCode: ErrCodeSessionRequired},
		{name: "unknown session", sessionID: id.Session(), wantStatus: http.StatusNotFound, wantCode: ErrCodeSessionExpired},
		{name: "malformed session", sessionID: "not-a-session", wantStatus: http.StatusNotFound, wantCode: ErrCodeSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRPC(t, ts.URL, tt.sessionID, "application/json, text/event-stream", list)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			out := readRPC(t, resp)
			if out.Error == nil || out.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %d", out.Error, tt.wantCode)
			}
		})
	}
}

func TestServer_RejectsNonJSONBody(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	resp, err := http.Post(ts.URL+"/mcp", "text/plain", strings.NewReader(initBody))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestServer_ParseError(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	resp := postRPC(t, ts.URL, "", "application/json", `{broken`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	out := readRPC(t, resp)
	if out.Error == nil || out.Error.Code != ErrCodeParseError {
		t.Errorf("error = %+v, want parse error", out.Error)
	}
}

func TestServer_NotificationAndMethods(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, &fakeWorkspace{})

	sessionID := postRPC(t, ts.URL, "", "application/json", initBody).Header.Get(HeaderSessionID)

	resp := postRPC(t, ts.URL, sessionID, "application/json", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("notification status = %d, want 202", resp.StatusCode)
	}
	if state := s.Sessions().Get(sessionID).GetState(); state != SessionStateReady {
		t.Errorf("state = %v, want ready", state)
	}

	out := readRPC(t, postRPC(t, ts.URL, sessionID, "application/json", `{"jsonrpc":"2.0","id":"p","method":"ping"}`))
	if out.Error != nil || out.ID != "p" {
		t.Errorf("ping = %+v", out)
	}

	out = readRPC(t, postRPC(t, ts.URL, sessionID, "application/json", `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`))
	if out.Error == nil || out.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("resources/list error = %+v, want method not found", out.Error)
	}
}

func TestServer_DeleteSession(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	sessionID := postRPC(t, ts.URL, "", "application/json", initBody).Header.Get(HeaderSessionID)

	del := func() int {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
		req.Header.Set(HeaderSessionID, sessionID)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE error = %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := del(); got != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", got)
	}
	if got := del(); got != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", got)
	}

	resp := postRPC(t, ts.URL, sessionID, "application/json", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after DELETE = %d, want 404", resp.StatusCode)
	}
}

func TestServer_HealthAndMethodNotAllowed(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, &fakeWorkspace{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	var health map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, health)
	}
	if health["tools"] != float64(6) {
		t.Errorf("health tools = %v, want 6", health["tools"])
	}

	resp, err = http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /mcp status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_DNSRebindingProtection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		protect    bool
		host       string
		origin     string
		wantStatus int
	}{
		{name: "localhost allowed", protect: true, host: "localhost:8000", wantStatus: http.StatusOK},
		{name: "loopback allowed", protect: true, host: "127.0.0.1:8000", wantStatus: http.StatusOK},
		{name: "foreign host rejected", protect: true, host: "attacker.example:8000", wantStatus: http.StatusForbidden},
		{name: "foreign origin rejected", protect: true, host: "localhost:8000", origin: "http://attacker.example", wantStatus: http.StatusForbidden},
		{name: "local origin allowed", protect: true, host: "localhost:8000", origin: "http://localhost:3000", wantStatus: http.StatusOK},
		{name: "protection off", protect: false, host: "mcp.internal.example", origin: "https://proxy.example", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.DNSRebindingProtection = tt.protect
			handler := NewServer(cfg, nil).Handler()

			req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initBody))
			req.Host = tt.host
			req.Header.Set("Content-Type", "application/json")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestServer_WithMCPClient(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{
		clusters: []databricks.Cluster{{ClusterID: "0101-abc", ClusterName: "shared", State: "RUNNING"}},
		schemas:  []databricks.Schema{{Name: "default", CatalogName: "main"}},
	}
	_, ts := newTestServer(t, ws)
	client := mcpclient.New(ts.URL)
	ctx := context.Background()

	if _, err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !id.IsSession(client.SessionID()) {
		t.Fatalf("client session = %q", client.SessionID())
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range tools.Tools() {
		names = append(names, mcpclient.StringField(tool, "name"))
	}
	want := "list_clusters,list_warehouses,list_catalogs,list_schemas,list_jobs,execute_sql"
	if strings.Join(names, ",") != want {
		t.Errorf("tools = %v, want %s", names, want)
	}

	resp, err := client.CallTool(ctx, "list_schemas", map[string]any{"catalog_name": "main"})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	content, ok := resp.Content()
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v", content)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(mcpclient.StringField(content[0], "text")), &payload); err != nil {
		t.Fatalf("tool text is not JSON: %v", err)
	}
	if payload["catalog_name"] != "main" || payload["count"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
	if got := ws.catalog(); got != "main" {
		t.Errorf("workspace saw catalog %q", got)
	}

	resp, err = client.CallTool(ctx, "list_schemas", map[string]any{})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if resp.Result()["isError"] != true {
		t.Errorf("missing catalog_name should be a tool error, got %v", resp.Result())
	}

	if client.LastRequestID() != 4 {
		t.Errorf("LastRequestID() = %d, want 4", client.LastRequestID())
	}
}

func TestServer_WorkspaceFailureIsToolError(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{err: &databricks.APIError{StatusCode: 403, ErrorCode: "PERMISSION_DENIED", Message: "no access"}}
	_, ts := newTestServer(t, ws)
	client := mcpclient.New(ts.URL)
	ctx := context.Background()

	if _, err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	resp, err := client.CallTool(ctx, "list_clusters", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if resp.Error() != nil {
		t.Fatalf("unexpected JSON-RPC error %v", resp.Error())
	}
	content, _ := resp.Content()
	text := mcpclient.StringField(content[0], "text")
	if resp.Result()["isError"] != true || !strings.Contains(text, "PERMISSION_DENIED") {
		t.Errorf("result = %v", resp.Result())
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{clusters: []databricks.Cluster{{ClusterID: "0101-abc", ClusterName: "shared"}}}
	_, ts := newTestServer(t, ws)
	client := mcpclient.New(ts.URL)
	ctx := context.Background()

	if _, err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := client.CallTool(ctx, "list_clusters", nil); err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if _, err := client.CallTool(ctx, "drop_everything", nil); err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	resp, err := http.Post(ts.URL+"/mcp", "text/plain", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	out := string(body)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{
		`dbx_mcp_rpc_requests_total{method="initialize",outcome="ok"} 1`,
		`dbx_mcp_rpc_requests_total{method="tools/call",outcome="ok"} 2`,
		`dbx_mcp_tool_calls_total{outcome="ok",tool="list_clusters"} 1`,
		`dbx_mcp_tool_calls_total{outcome="error",tool="unknown"} 1`,
		`dbx_mcp_tool_duration_seconds_count{tool="list_clusters"} 1`,
		`dbx_mcp_http_rejected_total{reason="content_type"} 1`,
		"dbx_mcp_sessions_active 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DNSRebindingProtection = false
	cfg.MetricsPath = ""
	handler := NewServer(cfg, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_FailedInitializeReleasesSession(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DNSRebindingProtection = false
	cfg.MaxSessions = 2
	s := NewServer(cfg, &fakeWorkspace{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	for i := 0; i < 3; i++ {
		resp := postRPC(t, ts.URL, "", "application/json", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":"bogus"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200", i, resp.StatusCode)
		}
		if sid := resp.Header.Get(HeaderSessionID); sid != "" {
			t.Errorf("attempt %d: Mcp-Session-Id = %q, want none", i, sid)
		}
		out := readRPC(t, resp)
		if out.Error == nil || out.Error.Code != ErrCodeInvalidParams {
			t.Errorf("attempt %d: error = %+v, want invalid params", i, out.Error)
		}
	}
	if n := s.Sessions().Count(); n != 0 {
		t.Errorf("sessions after failed handshakes = %d, want 0", n)
	}

	resp := postRPC(t, ts.URL, "", "application/json", initBody)
	if resp.StatusCode != http.StatusOK || resp.Header.Get(HeaderSessionID) == "" {
		t.Errorf("valid initialize: status = %d, session = %q", resp.StatusCode, resp.Header.Get(HeaderSessionID))
	}
}
