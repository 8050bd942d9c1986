package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory for global config
	GlobalConfigDir = "dbx-mcp"
)

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".dbxmcprc.yaml", ".dbxmcprc.yml"}

// GlobalConfigFileNames are the names to search for global config (in order).
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// FindLocalConfig searches for .dbxmcprc.yaml or .dbxmcprc.yml in the current directory.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findFirst(cwd, LocalConfigFileNames), nil
}

// FindGlobalConfig returns the path to the global config file.
// Returns empty string if not found.
func FindGlobalConfig() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		//nolint:nilerr // no config dir means no global config
		return "", nil
	}
	return findFirst(filepath.Join(configDir, GlobalConfigDir), GlobalConfigFileNames), nil
}

func findFirst(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// LoadConfigFile loads a CLIConfig from a YAML file.
func LoadConfigFile(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		cerr := &ConfigError{Path: path, Message: err.Error()}
		if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
			cerr.Line, _ = strconv.Atoi(m[1])
		}
		return nil, cerr
	}

	// Second pass over the raw keys so MergeConfig can tell an explicit
	// false from an absent key.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err == nil {
		cfg.SetFields = make(map[string]bool, len(raw))
		for key := range raw {
			cfg.SetFields[key] = true
		}
	}

	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// ConfigError reports a malformed configuration source. Path is the file,
// or the environment variable, that held the bad value.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Message)
	}
	return e.Path + ": " + e.Message
}

// LoadAll loads configuration from all sources and merges them.
// Precedence: env > local config > global config > defaults. Flags are
// applied by the caller. Missing files are skipped; unreadable or
// malformed ones are reported.
func LoadAll() (*CLIConfig, error) {
	cfg := NewDefault()

	globalPath, _ := FindGlobalConfig()
	if err := mergeFile(cfg, globalPath, SourceGlobal); err != nil {
		return nil, err
	}

	localPath, err := FindLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("locate local config: %w", err)
	}
	if err := mergeFile(cfg, localPath, SourceLocal); err != nil {
		return nil, err
	}

	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func mergeFile(cfg *CLIConfig, path, source string) error {
	if path == "" {
		return nil
	}
	fileCfg, err := LoadConfigFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	MergeConfig(cfg, fileCfg, source)
	return nil
}
