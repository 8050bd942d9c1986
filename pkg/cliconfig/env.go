package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvBaseURL                = "DBX_MCP_BASE_URL"
	EnvWarehouseID            = "DBX_MCP_WAREHOUSE_ID"
	EnvMode                   = "DBX_MCP_MODE"
	EnvTimeout                = "DBX_MCP_TIMEOUT"
	EnvHost                   = "DBX_MCP_HOST"
	EnvPort                   = "DBX_MCP_PORT"
	EnvPath                   = "DBX_MCP_PATH"
	EnvDNSRebindingProtection = "DBX_MCP_DNS_REBINDING_PROTECTION"
	EnvLogLevel               = "DBX_MCP_LOG_LEVEL"
	EnvLogFormat              = "DBX_MCP_LOG_FORMAT"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment. A malformed
// number or boolean is reported as a *ConfigError naming the variable.
func LoadEnvConfig(cfg *CLIConfig) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	setString := func(env, key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
			cfg.Sources[key] = SourceEnv
		}
	}
	setInt := func(env, key string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Path: env, Message: fmt.Sprintf("invalid integer %q", v)}
		}
		*dst = n
		cfg.Sources[key] = SourceEnv
		return nil
	}

	setString(EnvBaseURL, "baseUrl", &cfg.BaseURL)
	setString(EnvWarehouseID, "warehouseId", &cfg.WarehouseID)
	setString(EnvMode, "mode", &cfg.Mode)
	setString(EnvHost, "host", &cfg.Host)
	setString(EnvPath, "path", &cfg.Path)
	setString(EnvLogLevel, "logLevel", &cfg.LogLevel)
	setString(EnvLogFormat, "logFormat", &cfg.LogFormat)

	if err := setInt(EnvTimeout, "timeout", &cfg.Timeout); err != nil {
		return err
	}
	if err := setInt(EnvPort, "port", &cfg.Port); err != nil {
		return err
	}

	if v := strings.TrimSpace(os.Getenv(EnvDNSRebindingProtection)); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return &ConfigError{Path: EnvDNSRebindingProtection, Message: fmt.Sprintf("invalid boolean %q", v)}
		}
		cfg.DNSRebindingProtection = b
		cfg.Sources["dnsRebindingProtection"] = SourceEnv
	}
	return nil
}

func parseBool(v string) (value, ok bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}
