// ABOUTME: Configuration loading and parsing for hireloop-gateway.
// ABOUTME: YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete hireloop-gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Model     ModelConfig     `yaml:"model"`
	Planner   PlannerConfig   `yaml:"planner"`
	Formatter FormatterConfig `yaml:"formatter"`
	Stream    StreamConfig    `yaml:"stream"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds tenant-credential configuration.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ModelConfig holds the model runtime endpoint configuration.
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Name    string `yaml:"name"`
}

// PlannerConfig bounds the planning loop.
type PlannerConfig struct {
	MaxSteps      int `yaml:"max_steps"`
	MaxRetries    int `yaml:"max_retries"`
	ContextWindow int `yaml:"context_window"`
}

// FormatterConfig bounds the formatting call.
type FormatterConfig struct {
	MaxSteps   int `yaml:"max_steps"`
	MaxRetries int `yaml:"max_retries"`
}

// StreamConfig holds chunk-channel tuning.
type StreamConfig struct {
	Buffer     int           `yaml:"buffer"`
	FlushDelay time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	FlushDelayRaw string `yaml:"flush_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults as configured in the reference deployment.
const (
	DefaultPlannerMaxSteps     = 5
	DefaultPlannerMaxRetries   = 3
	DefaultFormatterMaxSteps   = 1
	DefaultFormatterMaxRetries = 1
	DefaultContextWindow       = 10
	DefaultStreamBuffer        = 16
	DefaultFlushDelay          = 300 * time.Millisecond
)

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded before parsing; duration strings become time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

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

// expandEnvVars replaces ${VAR_NAME} patterns with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Planner.MaxSteps <= 0 {
		c.Planner.MaxSteps = DefaultPlannerMaxSteps
	}
	if c.Planner.MaxRetries <= 0 {
		c.Planner.MaxRetries = DefaultPlannerMaxRetries
	}
	if c.Planner.ContextWindow <= 0 {
		c.Planner.ContextWindow = DefaultContextWindow
	}
	if c.Formatter.MaxSteps <= 0 {
		c.Formatter.MaxSteps = DefaultFormatterMaxSteps
	}
	if c.Formatter.MaxRetries <= 0 {
		c.Formatter.MaxRetries = DefaultFormatterMaxRetries
	}
	if c.Stream.Buffer <= 0 {
		c.Stream.Buffer = DefaultStreamBuffer
	}
	if c.Stream.FlushDelay <= 0 {
		c.Stream.FlushDelay = DefaultFlushDelay
	}
}

func parseDurations(cfg *Config) error {
	if cfg.Stream.FlushDelayRaw != "" {
		d, err := time.ParseDuration(cfg.Stream.FlushDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing flush_delay %q: %w", cfg.Stream.FlushDelayRaw, err)
		}
		cfg.Stream.FlushDelay = d
	}
	return nil
}
