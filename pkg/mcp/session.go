package mcp

import (
	"sync"
	"time"

	"github.com/srea-labs/dbx-mcp/internal/id"
)

// MCPSession represents a single client session.
type MCPSession struct {
	// ID is the unique session identifier sent back in Mcp-Session-Id.
	ID string

	// ProtocolVersion is the negotiated protocol version.
	ProtocolVersion string

	// ClientInfo contains information about the connected client.
	ClientInfo ClientInfo

	// Capabilities are the client-declared capabilities.
	Capabilities ClientCapabilities

	// State is the current session lifecycle state.
	State SessionState

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// LastActiveAt is the timestamp of the last request.
	LastActiveAt time.Time

	mu sync.RWMutex
}

// NewSession creates a new session with a generated ID.
func NewSession() *MCPSession {
	now := time.Now()
	return &MCPSession{
		ID:           id.Session(),
		State:        SessionStateNew,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// SetClientData records what the client declared in initialize.
func (s *MCPSession) SetClientData(version string, info ClientInfo, caps ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProtocolVersion = version
	s.ClientInfo = info
	s.Capabilities = caps
}

// GetClientInfo returns the client identity recorded at initialize.
func (s *MCPSession) GetClientInfo() ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ClientInfo
}

// Touch updates the last active timestamp.
func (s *MCPSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}

// IsExpired checks if the session has expired.
func (s *MCPSession) IsExpired(timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State == SessionStateExpired || time.Since(s.LastActiveAt) > timeout
}

// SetState updates the session state.
func (s *MCPSession) SetState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

// GetState returns the current session state.
func (s *MCPSession) GetState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// Close marks the session expired.
func (s *MCPSession) Close() {
	s.SetState(SessionStateExpired)
}

// SessionManager manages all active MCP sessions.
type SessionManager struct {
	sessions map[string]*MCPSession
	config   *Config
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager(cfg *Config) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*MCPSession),
		config:   cfg,
	}
}

// Create creates a new session and adds it to the manager.
// Returns an error if the maximum session limit is reached.
func (m *SessionManager) Create() (*MCPSession, *JSONRPCError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		// Try to clean up expired sessions first
		m.cleanupLocked()

		if len(m.sessions) >= m.config.MaxSessions {
			return nil, SessionLimitError(m.config.MaxSessions)
		}
	}

	session := NewSession()
	m.sessions[session.ID] = session
	return session, nil
}

// Get retrieves a live session by ID. Expired sessions are removed and
// reported as missing.
func (m *SessionManager) Get(id string) *MCPSession {
	m.mu.RLock()
	session := m.sessions[id]
	m.mu.RUnlock()

	if session == nil {
		return nil
	}
	if session.IsExpired(m.config.SessionTimeout) {
		m.Delete(id)
		return nil
	}
	return session
}

// Delete removes a session by ID. It reports whether the session existed.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if ok {
		session.Close()
		delete(m.sessions, id)
	}
	return ok
}

// Cleanup removes all expired sessions.
func (m *SessionManager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked()
}

// cleanupLocked removes expired sessions (must be called with lock held).
func (m *SessionManager) cleanupLocked() int {
	removed := 0
	for id, session := range m.sessions {
		if session.IsExpired(m.config.SessionTimeout) {
			session.Close()
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of active sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns all session IDs.
func (m *SessionManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// StartCleanupRoutine starts a goroutine that periodically cleans up expired sessions.
func (m *SessionManager) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

// Close closes all sessions.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		session.Close()
		delete(m.sessions, id)
	}
}
