package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points every config source at empty temp locations.
func isolate(t *testing.T) (globalDir, workDir string) {
	t.Helper()
	for _, env := range []string{
		EnvBaseURL, EnvWarehouseID, EnvMode, EnvTimeout, EnvHost, EnvPort,
		EnvPath, EnvDNSRebindingProtection, EnvLogLevel, EnvLogFormat,
	} {
		t.Setenv(env, "")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	workDir = filepath.Join(base, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(workDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	globalDir = filepath.Join(base, "config", GlobalConfigDir)
	return globalDir, workDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Mode != "init" || cfg.Timeout != 30 {
		t.Errorf("client defaults = %q/%d, want init/30", cfg.Mode, cfg.Timeout)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 8000 || cfg.Path != "/mcp" {
		t.Errorf("server defaults = %s:%d%s", cfg.Host, cfg.Port, cfg.Path)
	}
	if cfg.DNSRebindingProtection {
		t.Error("DNS rebinding protection should default to off")
	}
	if cfg.Sources["port"] != SourceDefault {
		t.Errorf("Sources[port] = %q", cfg.Sources["port"])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestCLIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CLIConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *CLIConfig) {}},
		{name: "timeout zero", mutate: func(c *CLIConfig) { c.Timeout = 0 }, wantErr: "timeout 0 is out of range"},
		{name: "timeout too high", mutate: func(c *CLIConfig) { c.Timeout = 7200 }, wantErr: "timeout 7200"},
		{name: "port too high", mutate: func(c *CLIConfig) { c.Port = 70000 }, wantErr: "port 70000 is out of range"},
		{name: "relative path", mutate: func(c *CLIConfig) { c.Path = "mcp" }, wantErr: "must start with '/'"},
		{name: "bad log format", mutate: func(c *CLIConfig) { c.LogFormat = "xml" }, wantErr: "logFormat"},
		{name: "bad log level", mutate: func(c *CLIConfig) { c.LogLevel = "loud" }, wantErr: "logLevel"},
		{name: "upper case level", mutate: func(c *CLIConfig) { c.LogLevel = "DEBUG" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAll_Precedence(t *testing.T) {
	globalDir, workDir := isolate(t)

	writeFile(t, filepath.Join(globalDir, "config.yaml"), `
baseUrl: https://global.example.com
mode: discover
timeout: 10
port: 9000
logLevel: debug
`)
	writeFile(t, filepath.Join(workDir, ".dbxmcprc.yaml"), `
baseUrl: https://local.example.com
warehouseId: abc123
timeout: 15
`)
	t.Setenv(EnvTimeout, "45")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	checks := []struct {
		key    string
		got    any
		want   any
		source string
	}{
		{"baseUrl", cfg.BaseURL, "https://local.example.com", SourceLocal},
		{"warehouseId", cfg.WarehouseID, "abc123", SourceLocal},
		{"mode", cfg.Mode, "discover", SourceGlobal},
		{"timeout", cfg.Timeout, 45, SourceEnv},
		{"port", cfg.Port, 9000, SourceGlobal},
		{"logLevel", cfg.LogLevel, "debug", SourceGlobal},
		{"host", cfg.Host, DefaultHost, SourceDefault},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.key, c.got, c.want)
		}
		if cfg.Sources[c.key] != c.source {
			t.Errorf("Sources[%s] = %q, want %q", c.key, cfg.Sources[c.key], c.source)
		}
	}
}

func TestLoadAll_ExplicitFalseOverridesTrue(t *testing.T) {
	globalDir, workDir := isolate(t)

	writeFile(t, filepath.Join(globalDir, "config.yml"), "dnsRebindingProtection: true\nallowedHosts: [\"localhost:*\"]\n")
	writeFile(t, filepath.Join(workDir, ".dbxmcprc.yml"), "dnsRebindingProtection: false\n")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if cfg.DNSRebindingProtection {
		t.Error("local false should override global true")
	}
	if cfg.Sources["dnsRebindingProtection"] != SourceLocal {
		t.Errorf("source = %q, want local", cfg.Sources["dnsRebindingProtection"])
	}
	if len(cfg.AllowedHosts) != 1 || cfg.AllowedHosts[0] != "localhost:*" {
		t.Errorf("AllowedHosts = %v", cfg.AllowedHosts)
	}
}

func TestLoadAll_MalformedFile(t *testing.T) {
	_, workDir := isolate(t)
	writeFile(t, filepath.Join(workDir, ".dbxmcprc.yaml"), "baseUrl: [unterminated\n")

	_, err := LoadAll()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("LoadAll() error = %v, want *ConfigError", err)
	}
	if !strings.HasSuffix(cerr.Path, ".dbxmcprc.yaml") {
		t.Errorf("Path = %q", cerr.Path)
	}
	if cerr.Line == 0 || !strings.Contains(cerr.Error(), "(line ") {
		t.Errorf("Error() = %q, want a line number", cerr.Error())
	}
}

func TestLoadAll_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if cfg.BaseURL != "" || cfg.Port != DefaultPort {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadEnvConfig(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBaseURL, " http://127.0.0.1:8000 ")
	t.Setenv(EnvPort, " 9000 ")
	t.Setenv(EnvDNSRebindingProtection, "yes")
	t.Setenv(EnvLogFormat, "json")

	cfg := NewDefault()
	if err := LoadEnvConfig(cfg); err != nil {
		t.Fatalf("LoadEnvConfig() error = %v", err)
	}

	if cfg.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Port != 9000 || cfg.Sources["port"] != SourceEnv {
		t.Errorf("Port = %d (%s)", cfg.Port, cfg.Sources["port"])
	}
	if !cfg.DNSRebindingProtection {
		t.Error("DNSRebindingProtection = false, want true")
	}
	if cfg.LogFormat != "json" || cfg.Sources["logFormat"] != SourceEnv {
		t.Errorf("LogFormat = %q (%s)", cfg.LogFormat, cfg.Sources["logFormat"])
	}
}

func TestLoadEnvConfig_Malformed(t *testing.T) {
	tests := []struct {
		env   string
		value string
		want  string
	}{
		{EnvTimeout, "soon", `DBX_MCP_TIMEOUT: invalid integer "soon"`},
		{EnvPort, "80a", `DBX_MCP_PORT: invalid integer "80a"`},
		{EnvDNSRebindingProtection, "maybe", `DBX_MCP_DNS_REBINDING_PROTECTION: invalid boolean "maybe"`},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.value)

			cfg := NewDefault()
			err := LoadEnvConfig(cfg)
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("LoadEnvConfig() error = %v, want *ConfigError", err)
			}
			if cerr.Path != tt.env || err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}

			if _, err := LoadAll(); !errors.As(err, &cerr) {
				t.Errorf("LoadAll() error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestMergeConfig_ProgrammaticBools(t *testing.T) {
	target := NewDefault()
	target.DNSRebindingProtection = true

	MergeConfig(target, &CLIConfig{}, SourceFlag)
	if !target.DNSRebindingProtection {
		t.Error("zero-value source without SetFields should not clear true")
	}

	MergeConfig(target, nil, SourceFlag)
	MergeConfig(target, &CLIConfig{Mode: "validate"}, SourceFlag)
	if target.Mode != "validate" || target.Sources["mode"] != SourceFlag {
		t.Errorf("Mode = %q (%s)", target.Mode, target.Sources["mode"])
	}
}

func TestConfigError_Error(t *testing.T) {
	if got := (&ConfigError{Path: "a.yaml", Message: "bad"}).Error(); got != "a.yaml: bad" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ConfigError{Path: "a.yaml", Line: 3, Message: "bad"}).Error(); got != "a.yaml (line 3): bad" {
		t.Errorf("Error() = %q", got)
	}
}
