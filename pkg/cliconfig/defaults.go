package cliconfig

import (
	"fmt"
	"strings"
)

// DefaultMode is the scenario run when none is given.
const DefaultMode = "init"

// DefaultTimeout is the default per-request timeout in seconds.
const DefaultTimeout = 30

// DefaultHost is the default server bind address.
const DefaultHost = "0.0.0.0"

// DefaultPort is the default server port.
const DefaultPort = 8000

// DefaultPath is the default MCP endpoint path.
const DefaultPath = "/mcp"

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default log format.
const DefaultLogFormat = "text"

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		Mode:      DefaultMode,
		Timeout:   DefaultTimeout,
		Host:      DefaultHost,
		Port:      DefaultPort,
		Path:      DefaultPath,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Sources:   make(map[string]string),
	}

	for _, key := range []string{"mode", "timeout", "host", "port", "path", "dnsRebindingProtection", "logLevel", "logFormat"} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}

// Validate checks ranges and enumerations that do not depend on the
// command being run.
func (c *CLIConfig) Validate() error {
	if c.Timeout < 1 || c.Timeout > 3600 {
		return fmt.Errorf("timeout %d is out of range (1-3600 seconds)", c.Timeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with '/'", c.Path)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logFormat %q must be text or json", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logLevel %q must be debug, info, warn or error", c.LogLevel)
	}
	return nil
}
