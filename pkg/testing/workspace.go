package testing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/srea-labs/dbx-mcp/pkg/databricks"
)

// TestToken is the bearer token Client sends.
const TestToken = "dapi-test-token"

// Workspace is a fake Databricks workspace REST API.
type Workspace struct {
	httpSrv *httptest.Server

	mu       sync.Mutex
	stubs    []*stub
	requests []RequestLog
}

// stub is one registered response. remaining < 0 means unlimited.
type stub struct {
	method    string
	path      string
	status    int
	headers   map[string]string
	body      []byte
	remaining int
}

// NewWorkspace starts a fake workspace. Call Close when done.
func NewWorkspace() *Workspace {
	ws := &Workspace{}
	ws.httpSrv = httptest.NewServer(http.HandlerFunc(ws.serveHTTP))
	return ws
}

// New starts a fake workspace that is closed when the test completes.
func New(t testing.TB) *Workspace {
	t.Helper()
	ws := NewWorkspace()
	t.Cleanup(ws.Close)
	return ws
}

// URL returns the base URL of the fake workspace.
func (w *Workspace) URL() string {
	return w.httpSrv.URL
}

// Close shuts the fake workspace down.
func (w *Workspace) Close() {
	w.httpSrv.Close()
}

// Config returns a databricks.Config pointing at the fake workspace.
func (w *Workspace) Config() databricks.Config {
	return databricks.Config{
		Host:  w.URL(),
		Token: TestToken,
	}
}

// Client returns a databricks.Client pointing at the fake workspace.
func (w *Workspace) Client() *databricks.Client {
	return databricks.NewClient(w.Config())
}

// On starts a stub for method and path.
//
// Example:
//
//	ws.On("GET", "/api/2.0/clusters/list").
//	    WithJSON(map[string]any{"clusters": []any{}}).
//	    Reply()
func (w *Workspace) On(method, path string) *StubBuilder {
	return &StubBuilder{
		ws: w,
		stub: &stub{
			method:    method,
			path:      path,
			status:    http.StatusOK,
			headers:   map[string]string{},
			remaining: -1,
		},
	}
}

// WithClusters stubs the cluster list.
func (w *Workspace) WithClusters(clusters ...databricks.Cluster) *Workspace {
	w.On(http.MethodGet, "/api/2.0/clusters/list").WithJSON(map[string]any{"clusters": clusters}).Reply()
	return w
}

// WithWarehouses stubs the SQL warehouse list.
func (w *Workspace) WithWarehouses(warehouses ...databricks.Warehouse) *Workspace {
	w.On(http.MethodGet, "/api/2.0/sql/warehouses").WithJSON(map[string]any{"warehouses": warehouses}).Reply()
	return w
}

// WithCatalogs stubs the Unity Catalog catalog list.
func (w *Workspace) WithCatalogs(catalogs ...databricks.Catalog) *Workspace {
	w.On(http.MethodGet, "/api/2.1/unity-catalog/catalogs").WithJSON(map[string]any{"catalogs": catalogs}).Reply()
	return w
}

// WithSchemas stubs the schema list regardless of catalog.
func (w *Workspace) WithSchemas(schemas ...databricks.Schema) *Workspace {
	w.On(http.MethodGet, "/api/2.1/unity-catalog/schemas").WithJSON(map[string]any{"schemas": schemas}).Reply()
	return w
}

// WithJobs stubs the job list.
func (w *Workspace) WithJobs(jobs ...databricks.Job) *Workspace {
	w.On(http.MethodGet, "/api/2.1/jobs/list").WithJSON(map[string]any{"jobs": jobs, "has_more": false}).Reply()
	return w
}

// WithStatement stubs the statement execution API.
func (w *Workspace) WithStatement(resp databricks.StatementResponse) *Workspace {
	w.On(http.MethodPost, "/api/2.0/sql/statements").WithJSON(resp).Reply()
	return w
}

// Seed stubs every endpoint with a small, consistent workspace: one
// running cluster, one warehouse, two catalogs, one job and a succeeded
// statement returning a single row.
func (w *Workspace) Seed() *Workspace {
	now, user := "2026-01-01T00:00:00.000Z", "tester@example.com"
	stmt := databricks.StatementResponse{
		StatementID: "stmt-1",
		Status:      databricks.StatementStatus{State: databricks.StatementSucceeded},
		Manifest:    &databricks.ResultManifest{TotalRowCount: 1},
		Result:      &databricks.ResultData{DataArray: [][]*string{{&now, &user}}, RowCount: 1},
	}
	stmt.Manifest.Schema.Columns = []databricks.Column{
		{Name: "now", TypeText: "TIMESTAMP", Position: 0},
		{Name: "user", TypeText: "STRING", Position: 1},
	}

	return w.
		WithClusters(databricks.Cluster{ClusterID: "0101-abc", ClusterName: "shared-etl", State: "RUNNING", NumWorkers: 2}).
		WithWarehouses(databricks.Warehouse{ID: "wh-1", Name: "Starter Warehouse", State: "RUNNING", ClusterSize: "2X-Small"}).
		WithCatalogs(databricks.Catalog{Name: "main", Owner: "admins"}, databricks.Catalog{Name: "samples"}).
		WithSchemas(databricks.Schema{Name: "default", CatalogName: "main", FullName: "main.default"}).
		WithJobs(databricks.Job{JobID: 42, Settings: databricks.JobSettings{Name: "nightly-refresh"}}).
		WithStatement(stmt)
}

// Reset clears all stubs and request logs.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stubs = nil
	w.requests = nil
}

func (w *Workspace) addStub(s *stub) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stubs = append(w.stubs, s)
}

// match returns the newest stub for method and path with uses left,
// consuming one use.
func (w *Workspace) match(method, path string) *stub {
	for i := len(w.stubs) - 1; i >= 0; i-- {
		s := w.stubs[i]
		if s.method != method || s.path != path || s.remaining == 0 {
			continue
		}
		if s.remaining > 0 {
			s.remaining--
		}
		return s
	}
	return nil
}

func (w *Workspace) serveHTTP(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	w.mu.Lock()
	w.requests = append(w.requests, RequestLog{
		Method:      r.Method,
		Path:        r.URL.Path,
		Headers:     headers,
		Body:        string(body),
		QueryString: r.URL.RawQuery,
	})
	s := w.match(r.Method, r.URL.Path)
	w.mu.Unlock()

	if s == nil {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(rw).Encode(map[string]string{
			"error_code": "ENDPOINT_NOT_FOUND",
			"message":    "no stub for " + r.Method + " " + r.URL.Path,
		})
		return
	}

	for k, v := range s.headers {
		rw.Header().Set(k, v)
	}
	rw.WriteHeader(s.status)
	_, _ = rw.Write(s.body)
}

// Requests returns all logged requests, oldest first.
func (w *Workspace) Requests() []RequestLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RequestLog, len(w.requests))
	copy(out, w.requests)
	return out
}

// LastRequest returns the newest request for method and path.
func (w *Workspace) LastRequest(method, path string) (RequestLog, bool) {
	reqs := w.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return RequestLog{}, false
}

// AssertCalled asserts that an endpoint was called at least once.
func (w *Workspace) AssertCalled(t testing.TB, method, path string) {
	t.Helper()

	if w.countCalls(method, path) == 0 {
		t.Errorf("expected %s %s to be called, but it was not called", method, path)
	}
}

// AssertCalledTimes asserts that an endpoint was called exactly n times.
func (w *Workspace) AssertCalledTimes(t testing.TB, method, path string, times int) {
	t.Helper()

	count := w.countCalls(method, path)
	if count != times {
		t.Errorf("expected %s %s to be called %d times, but was called %d times",
			method, path, times, count)
	}
}

// AssertNotCalled asserts that an endpoint was not called.
func (w *Workspace) AssertNotCalled(t testing.TB, method, path string) {
	t.Helper()

	if count := w.countCalls(method, path); count > 0 {
		t.Errorf("expected %s %s to not be called, but it was called %d times",
			method, path, count)
	}
}

func (w *Workspace) countCalls(method, path string) int {
	count := 0
	for _, req := range w.Requests() {
		if req.Method == method && req.Path == path {
			count++
		}
	}
	return count
}
