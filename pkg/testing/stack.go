package testing

import (
	"net/http/httptest"
	"testing"

	"github.com/srea-labs/dbx-mcp/pkg/mcp"
)

// Stack is an MCP server backed by a fake workspace, served over HTTP.
type Stack struct {
	Workspace *Workspace
	Server    *mcp.Server

	httpSrv *httptest.Server
}

// NewStack starts a fake workspace and an MCP server in front of it.
// DNS-rebinding protection is off, the way serve runs it. Call Close when
// done.
func NewStack() *Stack {
	ws := NewWorkspace()

	cfg := mcp.DefaultConfig()
	cfg.DNSRebindingProtection = false
	server := mcp.NewServer(cfg, ws.Client())

	return &Stack{
		Workspace: ws,
		Server:    server,
		httpSrv:   httptest.NewServer(server.Handler()),
	}
}

// StartStack starts a stack that is closed when the test completes.
func StartStack(t testing.TB) *Stack {
	t.Helper()
	s := NewStack()
	t.Cleanup(s.Close)
	return s
}

// URL returns the base URL; the MCP endpoint is URL()+"/mcp".
func (s *Stack) URL() string {
	return s.httpSrv.URL
}

// Close stops the MCP server and the fake workspace.
func (s *Stack) Close() {
	s.httpSrv.Close()
	s.Server.Sessions().Close()
	s.Workspace.Close()
}
