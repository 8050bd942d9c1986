// Package cliconfig provides configuration types and loading for the dbx-mcp CLI.
package cliconfig

// CLIConfig represents the complete configuration for the dbx-mcp CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (DBX_MCP_*)
// 3. Local config file (.dbxmcprc.yaml in current directory)
// 4. Global config file (~/.config/dbx-mcp/config.yaml)
// 5. Default values (lowest priority)
type CLIConfig struct {
	// Validation client settings
	BaseURL     string `yaml:"baseUrl" json:"baseUrl"`
	WarehouseID string `yaml:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	Mode        string `yaml:"mode" json:"mode"`
	Timeout     int    `yaml:"timeout" json:"timeout"`

	// Server settings
	Host                   string   `yaml:"host" json:"host"`
	Port                   int      `yaml:"port" json:"port"`
	Path                   string   `yaml:"path" json:"path"`
	DNSRebindingProtection bool     `yaml:"dnsRebindingProtection" json:"dnsRebindingProtection"`
	AllowedHosts           []string `yaml:"allowedHosts,omitempty" json:"allowedHosts,omitempty"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys a config file set explicitly, so an
	// explicit false can override a true from a lower layer.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFlag    = "flag"
)
