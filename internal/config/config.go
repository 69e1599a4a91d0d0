// Package config loads the application configuration: tool locations,
// timeouts, substitution defaults, scratch handling and the optional
// report-store and HTTP settings. Everything has a working default; a config
// file only overrides what it names.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Tools        ToolsConfig        `yaml:"tools"`
	Substitution SubstitutionConfig `yaml:"substitution"`
	Scratch      ScratchConfig      `yaml:"scratch"`
	Store        StoreConfig        `yaml:"store"`
	HTTP         HTTPConfig         `yaml:"http"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

type ToolsConfig struct {
	Packmol   ToolConfig `yaml:"packmol"`
	Viamd     ToolConfig `yaml:"viamd"`
	Analyzer  ToolConfig `yaml:"analyzer"`
	Presenter ToolConfig `yaml:"presenter"`
}

type ToolConfig struct {
	// Executable is a path, or "auto" to search common locations and PATH.
	Executable string `yaml:"executable"`
	// Timeout bounds one invocation.
	Timeout Duration `yaml:"timeout"`
}

type SubstitutionConfig struct {
	// Tolerance is the packing tolerance in Å.
	Tolerance float64 `yaml:"tolerance"`
	// RequireApproval makes validation rejections fail the workflow.
	RequireApproval bool `yaml:"require_approval"`
	// Interactive enables operator inspection when a terminal is attached.
	Interactive bool `yaml:"interactive"`
}

type ScratchConfig struct {
	// Root is the parent directory for per-run scratch dirs.
	Root string `yaml:"root"`
	// Keep disables cleanup entirely.
	Keep bool `yaml:"keep"`
	// CleanupDelay defers removal so outputs can be inspected.
	CleanupDelay Duration `yaml:"cleanup_delay"`
}

type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	// Addr is the listen address of the serve command.
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Tools: ToolsConfig{
			Packmol:   ToolConfig{Executable: "auto", Timeout: Duration(300 * time.Second)},
			Viamd:     ToolConfig{Executable: "auto", Timeout: Duration(300 * time.Second)},
			Analyzer:  ToolConfig{Executable: "auto", Timeout: Duration(600 * time.Second)},
			Presenter: ToolConfig{Executable: "auto", Timeout: Duration(300 * time.Second)},
		},
		Substitution: SubstitutionConfig{
			Tolerance:   2.0,
			Interactive: true,
		},
		Scratch: ScratchConfig{
			CleanupDelay: Duration(5 * time.Minute),
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults; a
// missing file is an error so typos do not silently run with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q (want memory or redis)", c.Store.Backend)
	}
	if c.Substitution.Tolerance <= 0 {
		return fmt.Errorf("substitution tolerance must be positive, got %g", c.Substitution.Tolerance)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// SlogLevel maps the configured level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
