package id

import (
	"strings"

	"github.com/google/uuid"
)

// Session returns a new session identifier.
func Session() string {
	return uuid.NewString()
}

// Short returns a 12-character identifier for log correlation.
func Short() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// IsSession reports whether s looks like an identifier produced by Session.
func IsSession(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
