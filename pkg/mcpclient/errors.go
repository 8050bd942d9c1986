package mcpclient

import (
	"errors"
	"fmt"
)

// Decode failure reasons.
var (
	// ErrNotJSONOrSSE means the body had no "data: " marker and was not JSON.
	ErrNotJSONOrSSE = errors.New("response was neither JSON nor SSE")

	// ErrNoDataLine means the body mentioned "data: " but no line started with it.
	ErrNoDataLine = errors.New("no JSON data lines found in SSE response")
)

// HTTPError reports a failed HTTP exchange: either the server answered with a
// non-2xx status, or the request never got an answer (StatusCode 0).
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("POST %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that could not be turned into a
// JSON-RPC response object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsHTTPError reports whether err is or wraps an *HTTPError.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
