package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerName      = "quickapi-task-manager"
	DefaultServerVersion   = "1.0.0"
	DefaultProtocolVersion = "2024-11-05"
	MemoryJournal          = ":memory:"
)

// Config models taskmcp.yml.
type Config struct {
	Server struct {
		Name            string `yaml:"name" json:"name"`
		Version         string `yaml:"version" json:"version"`
		ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`
	} `yaml:"server" json:"server"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
	Journal struct {
		Enabled bool   `yaml:"enabled" json:"enabled"`
		Path    string `yaml:"path" json:"path"`
	} `yaml:"journal" json:"journal"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("config.server.name is required")
	}
	if strings.TrimSpace(c.Server.Version) == "" {
		return fmt.Errorf("config.server.version is required")
	}
	if strings.TrimSpace(c.Server.ProtocolVersion) == "" {
		return fmt.Errorf("config.server.protocol_version is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be 'text' or 'json'")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("config.journal.path is required when the journal is enabled")
	}
	return nil
}

// Path returns the config file path for a directory.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "taskmcp.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  name: ` + DefaultServerName + `
  version: ` + DefaultServerVersion + `
  protocol_version: "` + DefaultProtocolVersion + `"

log:
  level: info
  format: text

journal:
  enabled: true
  path: ":memory:"
`
