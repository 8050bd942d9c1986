package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/srea-labs/dbx-mcp/internal/id"
	"github.com/srea-labs/dbx-mcp/pkg/httputil"
	"github.com/srea-labs/dbx-mcp/pkg/logging"
	"github.com/srea-labs/dbx-mcp/pkg/metrics"
)

const (
	// ServerName is reported in serverInfo.
	ServerName = "databricks-mcp"

	// ServerVersion is reported in serverInfo.
	ServerVersion = "1.0.0"

	healthPath      = "/health"
	maxRequestBytes = 4 << 20
)

// Server is the streamable-HTTP MCP server.
type Server struct {
	config     *Config
	workspace  Workspace
	sessions   *SessionManager
	tools      *ToolRegistry
	metrics    *metrics.ServerMetrics
	httpServer *http.Server
	listener   net.Listener
	stopCh     chan struct{}
	mu         sync.RWMutex
	running    bool
	log        *slog.Logger
}

// NewServer creates a new MCP server. workspace backs the tools; when it is
// nil every tool call reports that no workspace is configured.
func NewServer(cfg *Config, workspace Workspace) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:    cfg,
		workspace: workspace,
		sessions:  NewSessionManager(cfg),
		metrics:   metrics.NewServerMetrics(),
		stopCh:    make(chan struct{}),
		log:       logging.Nop(),
	}

	s.tools = NewToolRegistry(s)
	return s
}

// Start binds the listen address and serves in the background. Bind
// failures are returned.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("MCP server is already running")
	}

	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid MCP config: %w", err)
	}

	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
	}

	s.stopCh = make(chan struct{})
	s.sessions.StartCleanupRoutine(time.Minute, s.stopCh)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("MCP server error", "error", err)
		}
	}()

	s.running = true
	s.log.Info("MCP server listening",
		"addr", ln.Addr().String(),
		"path", s.config.Path,
		"dns_rebinding_protection", s.config.DNSRebindingProtection,
	)
	return nil
}

// Stop gracefully shuts down the MCP server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopCh)
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("MCP server shutdown: %w", err)
	}

	s.sessions.Close()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the HTTP handler for the MCP server.
// This is useful for testing without starting the HTTP server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleMCP)
	mux.HandleFunc(healthPath, s.handleHealth)
	if s.config.MetricsPath != "" {
		mux.HandleFunc(s.config.MetricsPath, s.handleMetrics)
	}
	return s.withMiddleware(mux)
}

// withMiddleware wraps the handler with transport security and CORS.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get(HeaderOrigin)

		if s.config.DNSRebindingProtection {
			if !s.isHostAllowed(r.Host) {
				s.log.Warn("rejected request host", "host", r.Host, "remote", r.RemoteAddr)
				s.metrics.Reject(metrics.RejectHost)
				httputil.WriteError(w, http.StatusForbidden, "host_not_allowed", "Host header not allowed: "+r.Host)
				return
			}
			if origin != "" && !s.isOriginAllowed(origin) {
				s.log.Warn("rejected request origin", "origin", origin, "remote", r.RemoteAddr)
				s.metrics.Reject(metrics.RejectOrigin)
				httputil.WriteError(w, http.StatusForbidden, "origin_not_allowed", "Origin not allowed: "+origin)
				return
			}
		}

		// CORS headers
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, MCP-Protocol-Version")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

// isHostAllowed checks the Host header against AllowedHosts.
func (s *Server) isHostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range s.config.AllowedHosts {
		if allowed == "*" || matchPattern(host, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// isOriginAllowed checks if the origin is in the allowed list.
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || matchPattern(origin, allowed) {
			return true
		}
	}
	return false
}

// matchPattern matches a Host or Origin value against a pattern
// (supports * wildcard for port).
func matchPattern(value, pattern string) bool {
	if value == pattern {
		return true
	}

	// Handle wildcard patterns like "http://localhost:*"
	if strings.HasSuffix(pattern, ":*") {
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(value, prefix) {
			rest := value[len(prefix):]
			for _, c := range rest {
				if c < '0' || c > '9' {
					return false
				}
			}
			return len(rest) > 0
		}
	}

	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteMethodNotAllowed(w, "GET, HEAD", "use GET")
		return
	}
	httputil.WriteOK(w, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
		"tools":    len(s.tools.List()),
	})
}

// handleMetrics serves the Prometheus exposition. The session gauge is
// sampled at scrape time.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteMethodNotAllowed(w, "GET, HEAD", "use GET")
		return
	}
	s.metrics.SetSessions(s.sessions.Count())
	s.metrics.Registry.Handler().ServeHTTP(w, r)
}

// handleMCP is the main handler for MCP requests.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleJSONRPC(w, r)
	case http.MethodDelete:
		s.handleSessionDelete(w, r)
	default:
		// Server-initiated streams are not offered.
		s.metrics.Reject(metrics.RejectMethod)
		httputil.WriteMethodNotAllowed(w, "POST, DELETE", "use POST for JSON-RPC or DELETE to end a session")
	}
}

// handleJSONRPC handles JSON-RPC POST requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if !IsJSONBody(r) {
		s.metrics.Reject(metrics.RejectContentType)
		httputil.WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "content-type must be application/json")
		return
	}

	info := ExtractRequestInfo(r)
	log := s.log.With("request_id", id.Short())

	req, parseErr := ParseRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if parseErr != nil {
		log.Debug("bad JSON-RPC request", "error", parseErr)
		s.metrics.ObserveRPC("", true)
		s.writeResponse(w, r, http.StatusBadRequest, ErrorResponse(nil, parseErr))
		return
	}
	log = log.With("method", req.Method)

	var session *MCPSession

	// Initialize is special - creates a new session
	if req.Method == "initialize" {
		var rpcErr *JSONRPCError
		session, rpcErr = s.sessions.Create()
		if rpcErr != nil {
			log.Warn("session limit reached", "max_sessions", s.config.MaxSessions)
			s.metrics.Reject(metrics.RejectSessionLimit)
			s.metrics.ObserveRPC(req.Method, true)
			s.writeResponse(w, r, http.StatusServiceUnavailable, ErrorResponse(req.ID, rpcErr))
			return
		}
		w.Header().Set(HeaderSessionID, session.ID)
	} else {
		if info.SessionID == "" {
			s.metrics.ObserveRPC(req.Method, true)
			s.writeResponse(w, r, http.StatusBadRequest, ErrorResponse(req.ID, SessionRequiredError()))
			return
		}
		if id.IsSession(info.SessionID) {
			session = s.sessions.Get(info.SessionID)
		}
		if session == nil {
			s.metrics.ObserveRPC(req.Method, true)
			s.writeResponse(w, r, http.StatusNotFound, ErrorResponse(req.ID, SessionExpiredError(info.SessionID)))
			return
		}
		session.Touch()
	}
	log = log.With("session", session.ID)

	result, rpcErr := s.dispatch(r.Context(), session, req)
	s.metrics.ObserveRPC(req.Method, rpcErr != nil)

	// A failed handshake leaves no session behind.
	if req.Method == "initialize" && rpcErr != nil {
		s.sessions.Delete(session.ID)
		w.Header().Del(HeaderSessionID)
	}

	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if rpcErr != nil {
		log.Debug("JSON-RPC error", "code", rpcErr.Code, "message", rpcErr.Message)
		s.writeResponse(w, r, http.StatusOK, ErrorResponse(req.ID, rpcErr))
		return
	}

	log.Debug("JSON-RPC ok")
	s.writeResponse(w, r, http.StatusOK, SuccessResponse(req.ID, result))
}

// dispatch routes the request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, session *MCPSession, req *JSONRPCRequest) (interface{}, *JSONRPCError) {
	switch req.Method {
	// Lifecycle methods
	case "initialize":
		return s.handleInitialize(session, req.Params)
	case "notifications/initialized", "initialized":
		return s.handleInitialized(session)
	case "ping":
		return map[string]interface{}{}, nil

	// Tool methods
	case "tools/list":
		return s.handleToolsList(session)
	case "tools/call":
		return s.handleToolsCall(ctx, session, req.Params)

	default:
		return nil, MethodNotFoundError(req.Method)
	}
}

// handleInitialize negotiates the protocol version. A supported requested
// version is echoed; anything else gets the newest version this server speaks.
func (s *Server) handleInitialize(session *MCPSession, params json.RawMessage) (interface{}, *JSONRPCError) {
	initParams, err := UnmarshalParamsRequired[InitializeParams](params)
	if err != nil {
		return nil, err
	}

	version := ProtocolVersion
	if IsProtocolVersionSupported(initParams.ProtocolVersion) {
		version = initParams.ProtocolVersion
	}

	session.SetClientData(version, initParams.ClientInfo, initParams.Capabilities)
	session.SetState(SessionStateInitialized)

	s.log.Info("session initialized",
		"session", session.ID,
		"client", initParams.ClientInfo.Name,
		"client_version", initParams.ClientInfo.Version,
		"protocol_version", version,
	)

	return &InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Instructions: "Read-only access to a Databricks workspace: clusters, SQL warehouses, Unity Catalog, jobs and SQL statements.",
	}, nil
}

// handleInitialized handles the initialized notification.
func (s *Server) handleInitialized(session *MCPSession) (interface{}, *JSONRPCError) {
	if session.GetState() != SessionStateInitialized {
		return nil, NotInitializedError()
	}
	session.SetState(SessionStateReady)
	return nil, nil
}

// requireInitialized accepts sessions that finished initialize, with or
// without the follow-up initialized notification.
func requireInitialized(session *MCPSession) *JSONRPCError {
	switch session.GetState() {
	case SessionStateInitialized, SessionStateReady:
		return nil
	default:
		return NotInitializedError()
	}
}

// handleToolsList returns the list of available tools.
func (s *Server) handleToolsList(session *MCPSession) (interface{}, *JSONRPCError) {
	if err := requireInitialized(session); err != nil {
		return nil, err
	}

	return &ToolsListResult{
		Tools: s.tools.List(),
	}, nil
}

// handleToolsCall executes a tool. Tool failures are reported inside the
// result, not as JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, session *MCPSession, params json.RawMessage) (interface{}, *JSONRPCError) {
	if err := requireInitialized(session); err != nil {
		return nil, err
	}

	callParams, err := UnmarshalParamsRequired[ToolCallParams](params)
	if err != nil {
		return nil, err
	}
	if callParams.Name == "" {
		return nil, InvalidParamsError("tool name is required")
	}

	start := time.Now()
	result, toolErr := s.tools.Execute(ctx, callParams.Name, callParams.Arguments, session)
	if toolErr != nil {
		result = ToolResultErrorf("%s: %v", callParams.Name, toolErr)
	}

	elapsed := time.Since(start)
	toolLabel := callParams.Name
	if s.tools.Get(toolLabel) == nil {
		toolLabel = "unknown"
	}
	s.metrics.ObserveTool(toolLabel, result.IsError, elapsed)

	s.log.Debug("tool call",
		"session", session.ID,
		"tool", callParams.Name,
		"is_error", result.IsError,
		"duration", elapsed,
	)
	return result, nil
}

// handleSessionDelete handles session termination.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
	if sessionID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "session_required", "Mcp-Session-Id header is required")
		return
	}

	if !s.sessions.Delete(sessionID) {
		httputil.WriteError(w, http.StatusNotFound, "session_not_found", "unknown session")
		return
	}
	s.log.Info("session terminated", "session", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// writeResponse writes a JSON-RPC response. Successful replies go out as a
// single SSE message event when the client accepts text/event-stream,
// everything else as plain JSON.
func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, status int, resp *JSONRPCResponse) {
	data, err := MarshalResponse(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		httputil.WriteInternalError(w, "marshal_failed", err.Error())
		return
	}

	if status == http.StatusOK && WantsSSE(r) {
		sse, err := NewSSEWriter(w)
		if err == nil {
			sse.WriteHeaders()
			w.WriteHeader(status)
			if err := sse.WriteEvent(&SSEEvent{Event: "message", Data: string(data)}); err != nil {
				s.log.Debug("failed to write SSE event", "error", err)
			}
			sse.Close()
			return
		}
	}

	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// Tools returns the tool registry.
func (s *Server) Tools() *ToolRegistry {
	return s.tools
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *metrics.ServerMetrics {
	return s.metrics
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// SetLogger sets the operational logger for the server.
func (s *Server) SetLogger(log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log != nil {
		s.log = log
	} else {
		s.log = logging.Nop()
	}
}
