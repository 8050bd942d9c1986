package cli

import (
	"errors"
	"fmt"
)

// Common CLI errors
var (
	ErrBaseURLRequired = errors.New("--base-url is required (or set DBX_MCP_BASE_URL)")
)

// ExitError ends the process with Code after the command has already
// reported the failure itself.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
