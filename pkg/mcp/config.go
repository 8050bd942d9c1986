package mcp

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds MCP server configuration.
type Config struct {
	// Host is the interface to bind. "0.0.0.0" listens on every interface.
	Host string `json:"host"`

	// Port is the TCP port to listen on. Zero picks a free port.
	Port int `json:"port"`

	// Path is the HTTP endpoint path (e.g., "/mcp").
	Path string `json:"path"`

	// MetricsPath serves Prometheus metrics. Empty disables the endpoint.
	MetricsPath string `json:"metricsPath"`

	// DNSRebindingProtection enables Host and Origin header checks.
	// Turn it off when the server sits behind a reverse proxy that
	// rewrites Host.
	DNSRebindingProtection bool `json:"dnsRebindingProtection"`

	// AllowedHosts lists acceptable Host headers when protection is on.
	// Supports a ":*" port wildcard like "localhost:*".
	AllowedHosts []string `json:"allowedHosts"`

	// AllowedOrigins lists acceptable Origin headers when protection is on.
	// Supports wildcards like "http://localhost:*".
	AllowedOrigins []string `json:"allowedOrigins"`

	// SessionTimeout is the idle timeout for sessions.
	// Sessions are expired after this duration of inactivity.
	SessionTimeout time.Duration `json:"sessionTimeout"`

	// MaxSessions is the maximum number of concurrent sessions.
	MaxSessions int `json:"maxSessions"`

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration `json:"readTimeout"`

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:                   "127.0.0.1",
		Port:                   8000,
		Path:                   "/mcp",
		MetricsPath:            "/metrics",
		DNSRebindingProtection: true,
		AllowedHosts:           []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*"},
		AllowedOrigins:         []string{"http://localhost:*", "http://127.0.0.1:*", "http://[::1]:*"},
		SessionTimeout:         30 * time.Minute,
		MaxSessions:            100,
		ReadTimeout:            30 * time.Second,
		WriteTimeout:           90 * time.Second,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	if c.Path == "" {
		return errors.New("path cannot be empty")
	}

	if c.Path[0] != '/' {
		return fmt.Errorf("path must start with '/', got %q", c.Path)
	}

	if c.Path == healthPath {
		return fmt.Errorf("path %q is reserved", healthPath)
	}

	if c.MetricsPath != "" {
		if c.MetricsPath[0] != '/' {
			return fmt.Errorf("metricsPath must start with '/', got %q", c.MetricsPath)
		}
		if c.MetricsPath == c.Path || c.MetricsPath == healthPath {
			return fmt.Errorf("metricsPath %q collides with another endpoint", c.MetricsPath)
		}
	}

	if c.MaxSessions < 1 {
		return fmt.Errorf("maxSessions must be at least 1, got %d", c.MaxSessions)
	}

	if c.SessionTimeout < time.Second {
		return errors.New("sessionTimeout must be at least 1 second")
	}

	if c.DNSRebindingProtection && len(c.AllowedHosts) == 0 {
		return errors.New("allowedHosts cannot be empty when DNS rebinding protection is enabled")
	}

	return nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
