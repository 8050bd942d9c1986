package mcp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/elnormous/contenttype"
)

// HTTP headers used by MCP protocol.
const (
	HeaderSessionID       = "Mcp-Session-Id"
	HeaderProtocolVersion = "MCP-Protocol-Version"
	HeaderContentType     = "Content-Type"
	HeaderAccept          = "Accept"
	HeaderOrigin          = "Origin"
)

// Content types.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
)

var (
	jsonMediaType         = contenttype.NewMediaType(ContentTypeJSON)
	eventStreamMediaType  = contenttype.NewMediaType(ContentTypeEventStream)
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

// SSEWriter handles writing Server-Sent Events.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	eventID atomic.Int64
	closed  bool
}

// NewSSEWriter creates a new SSE writer.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	return &SSEWriter{
		w:       w,
		flusher: flusher,
	}, nil
}

// WriteHeaders sets the necessary headers for SSE.
func (s *SSEWriter) WriteHeaders() {
	s.w.Header().Set(HeaderContentType, ContentTypeEventStream)
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
}

// WriteEvent writes an SSE event.
func (s *SSEWriter) WriteEvent(event *SSEEvent) error {
	if s.closed {
		return errors.New("writer is closed")
	}

	var sb strings.Builder

	id := event.ID
	if id == "" {
		id = strconv.FormatInt(s.eventID.Add(1), 10)
	}
	sb.WriteString("id: ")
	sb.WriteString(id)
	sb.WriteByte('\n')

	if event.Event != "" {
		sb.WriteString("event: ")
		sb.WriteString(event.Event)
		sb.WriteByte('\n')
	}

	if event.Retry > 0 {
		sb.WriteString("retry: ")
		sb.WriteString(strconv.Itoa(event.Retry))
		sb.WriteByte('\n')
	}

	// Data (handle multiline)
	for _, line := range strings.Split(event.Data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	// End with blank line
	sb.WriteByte('\n')

	if _, err := s.w.Write([]byte(sb.String())); err != nil {
		return err
	}

	s.flusher.Flush()
	return nil
}

// WriteComment writes an SSE comment (keepalive).
func (s *SSEWriter) WriteComment(comment string) error {
	if s.closed {
		return errors.New("writer is closed")
	}

	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		return err
	}

	s.flusher.Flush()
	return nil
}

// Close marks the writer as closed.
func (s *SSEWriter) Close() {
	s.closed = true
}

// RequestInfo extracts information from an HTTP request relevant to MCP.
type RequestInfo struct {
	SessionID       string
	ProtocolVersion string
	ContentType     string
	Accept          string
	Origin          string
	Host            string
}

// ExtractRequestInfo extracts MCP-relevant information from a request.
func ExtractRequestInfo(r *http.Request) *RequestInfo {
	return &RequestInfo{
		SessionID:       strings.TrimSpace(r.Header.Get(HeaderSessionID)),
		ProtocolVersion: r.Header.Get(HeaderProtocolVersion),
		ContentType:     r.Header.Get(HeaderContentType),
		Accept:          r.Header.Get(HeaderAccept),
		Origin:          r.Header.Get(HeaderOrigin),
		Host:            r.Host,
	}
}

// IsJSONBody reports whether the request declares a JSON body.
func IsJSONBody(r *http.Request) bool {
	ctype, err := contenttype.GetMediaType(r)
	return err == nil && ctype.Matches(jsonMediaType)
}

// WantsSSE reports whether the reply should be framed as an SSE event. The
// client has to name text/event-stream explicitly; a bare "*/*" gets JSON.
func WantsSSE(r *http.Request) bool {
	if !strings.Contains(r.Header.Get(HeaderAccept), ContentTypeEventStream) {
		return false
	}
	_, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes)
	return err == nil
}
