package databricks

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds workspace connection settings.
type Config struct {
	// Host is the workspace URL. ENV: DATABRICKS_HOST
	Host string `env:"DATABRICKS_HOST"`

	// Token is sent as a bearer token. ENV: DATABRICKS_TOKEN
	Token string `env:"DATABRICKS_TOKEN"`

	// Timeout bounds each REST call. ENV: DATABRICKS_TIMEOUT
	Timeout time.Duration `env:"DATABRICKS_TIMEOUT,default=30s"`

	// SQLWaitTimeout is passed as wait_timeout to the statement API; the
	// service accepts 5s to 50s. ENV: DATABRICKS_SQL_WAIT_TIMEOUT
	SQLWaitTimeout time.Duration `env:"DATABRICKS_SQL_WAIT_TIMEOUT,default=30s"`

	// UserAgent is sent on every request. ENV: DATABRICKS_USER_AGENT
	UserAgent string `env:"DATABRICKS_USER_AGENT,default=dbx-mcp"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("databricks config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the workspace can be addressed.
func (c Config) Validate() error {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return errors.New("DATABRICKS_HOST is required")
	}
	u, err := url.Parse(normalizeHost(host))
	if err != nil || u.Host == "" {
		return fmt.Errorf("DATABRICKS_HOST %q is not a valid URL", c.Host)
	}
	if c.SQLWaitTimeout != 0 && (c.SQLWaitTimeout < 5*time.Second || c.SQLWaitTimeout > 50*time.Second) {
		return fmt.Errorf("DATABRICKS_SQL_WAIT_TIMEOUT must be between 5s and 50s, got %s", c.SQLWaitTimeout)
	}
	return nil
}

// normalizeHost adds https:// to bare hostnames and drops trailing slashes.
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}
