// ABOUTME: Configuration loading and parsing for haggle-gateway
// ABOUTME: YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete haggle-gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration. An empty path selects the
// in-memory store: everything works for the process lifetime, nothing
// survives a restart.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GenerationConfig holds text-generation configuration. Without an API key
// the gateway falls back to the rule-based generator.
type GenerationConfig struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	HistoryWindow int    `yaml:"history_window"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8000"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 30 * time.Second
	}
	if c.Generation.HistoryWindow == 0 {
		c.Generation.HistoryWindow = 6
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that configuration fields are coherent.
func (c *Config) Validate() error {
	if c.Generation.Timeout < 0 {
		return fmt.Errorf("generation.timeout must not be negative")
	}
	if c.Generation.HistoryWindow < 0 {
		return fmt.Errorf("generation.history_window must not be negative")
	}
	return nil
}

// parseDurations converts raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Generation.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Generation.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing generation.timeout %q: %w", cfg.Generation.TimeoutRaw, err)
		}
		cfg.Generation.Timeout = d
	}
	return nil
}
