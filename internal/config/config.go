// Package config handles TOML configuration loading for wirelog.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/wirelog/wirelog/internal/accesslog"
)

// DefaultMaxBodySize caps captured request/response bodies at 5 KiB.
const DefaultMaxBodySize = 5 * 1024

// Config represents the complete wirelog configuration.
type Config struct {
	Server     Server     `toml:"server"`
	AccessLogs AccessLogs `toml:"access_logs"`
}

// Server contains server-level settings.
type Server struct {
	LogLevel string `toml:"log_level" validate:"omitempty,oneof=debug info warning error"`
}

// AccessLogs configures record building and classification.
type AccessLogs struct {
	// BodyLogLevel is the minimum severity at or above which bodies are
	// captured for an event.
	BodyLogLevel string `toml:"body_log_level" validate:"omitempty,oneof=debug info warning error"`

	// MaxBodySize is the maximum number of body bytes captured and logged.
	MaxBodySize int `toml:"max_body_size" validate:"gte=0"`

	// DebugRequests lists debug-override rules, each a mapping of
	// flat-field-name to pattern.
	DebugRequests []map[string]string `toml:"debug_requests"`

	// Rules holds the compiled form of DebugRequests, populated at load.
	Rules []accesslog.DebugRule `toml:"-"`
}

// Load reads, validates and finalizes configuration from a TOML file.
// Unparsable debug-rule patterns are a load-time error so a bad rule can
// never surface at request time.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize applies defaults, validates field constraints and compiles the
// debug rules. It must be called on configs constructed in code before use.
func (c *Config) Finalize() error {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.AccessLogs.BodyLogLevel == "" {
		c.AccessLogs.BodyLogLevel = "warning"
	}
	if c.AccessLogs.MaxBodySize == 0 {
		c.AccessLogs.MaxBodySize = DefaultMaxBodySize
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rules, err := accesslog.CompileRules(c.AccessLogs.DebugRequests)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.AccessLogs.Rules = rules
	return nil
}

// ParseLevel converts a configured level name to its slog level.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BodyLogLevel returns the configured body-logging severity threshold.
func (c *Config) BodyLogLevel() slog.Level {
	return ParseLevel(c.AccessLogs.BodyLogLevel)
}
