// Package config provides configuration management for the secret redaction
// core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hfi/llm-secret-redactor/internal/audit"
	"github.com/hfi/llm-secret-redactor/internal/pattern"
)

// Config is the root configuration structure.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Limits   LimitsConfig   `yaml:"limits"`
	Patterns PatternsConfig `yaml:"patterns"`
	Audit    audit.Config   `yaml:"audit"`
	Server   ServerConfig   `yaml:"server"`
}

// StorageConfig selects and configures the session store backend.
type StorageConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis"
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
}

// LimitsConfig bounds sessions and per-call work.
type LimitsConfig struct {
	MaxSessions          int           `yaml:"max_sessions"`
	MaxSecretsPerSession int           `yaml:"max_secrets_per_session"`
	SessionTTL           time.Duration `yaml:"session_ttl"`
	// MaxTextLength is the length guard: longer inputs skip detection and
	// pass through unchanged.
	MaxTextLength int `yaml:"max_text_length"`
	// SlowCallThreshold triggers a slow_call audit event when a single
	// redaction or restoration pass exceeds it.
	SlowCallThreshold time.Duration `yaml:"slow_call_threshold"`
	// SweepInterval is how often the background eviction sweep runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// UnmarshalYAML accepts durations in "30m" form. Fields absent from the
// document keep their current values, so defaults survive partial configs.
func (l *LimitsConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxSessions          int    `yaml:"max_sessions"`
		MaxSecretsPerSession int    `yaml:"max_secrets_per_session"`
		SessionTTL           string `yaml:"session_ttl"`
		MaxTextLength        int    `yaml:"max_text_length"`
		SlowCallThreshold    string `yaml:"slow_call_threshold"`
		SweepInterval        string `yaml:"sweep_interval"`
	}{
		MaxSessions:          l.MaxSessions,
		MaxSecretsPerSession: l.MaxSecretsPerSession,
		SessionTTL:           l.SessionTTL.String(),
		MaxTextLength:        l.MaxTextLength,
		SlowCallThreshold:    l.SlowCallThreshold.String(),
		SweepInterval:        l.SweepInterval.String(),
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	l.MaxSessions = raw.MaxSessions
	l.MaxSecretsPerSession = raw.MaxSecretsPerSession
	l.MaxTextLength = raw.MaxTextLength

	for _, f := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"session_ttl", raw.SessionTTL, &l.SessionTTL},
		{"slow_call_threshold", raw.SlowCallThreshold, &l.SlowCallThreshold},
		{"sweep_interval", raw.SweepInterval, &l.SweepInterval},
	} {
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("limits.%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

// PatternsConfig overrides catalog states and adds custom rules.
type PatternsConfig struct {
	// States maps pattern id to "enabled", "disabled", or "log_only".
	States map[string]string `yaml:"states"`
	// Custom registers additional rules at startup (and on reload).
	Custom []CustomPattern `yaml:"custom"`
}

// CustomPattern is the YAML shape of a custom rule registration.
type CustomPattern struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Expr       string   `yaml:"expr"`
	Keywords   []string `yaml:"keywords"`
	Prefix     string   `yaml:"prefix"`
	MinEntropy float64  `yaml:"min_entropy"`
	State      string   `yaml:"state"`
}

// ServerConfig configures the management HTTP server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsPath string `yaml:"metrics_path"`
	HealthPath  string `yaml:"health_path"`
	StatsPath   string `yaml:"stats_path"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Limits: LimitsConfig{
			MaxSessions:          1000,
			MaxSecretsPerSession: 100,
			SessionTTL:           30 * time.Minute,
			MaxTextLength:        100000,
			SlowCallThreshold:    10 * time.Millisecond,
			SweepInterval:        time.Minute,
		},
		Audit: audit.DefaultConfig(),
		Server: ServerConfig{
			Addr:        ":9090",
			MetricsPath: "/metrics",
			HealthPath:  "/health",
			StatsPath:   "/stats",
		},
	}
}

// Load reads the configuration from CONFIG_PATH (default "config.yaml"),
// falling back to defaults when no file exists.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(sanitizePath(path))
}

// LoadFile reads the configuration from an explicit path. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //#nosec G304 -- path is sanitized by callers
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Limits.MaxSessions < 1 {
		return fmt.Errorf("limits.max_sessions must be positive, got %d", c.Limits.MaxSessions)
	}
	if c.Limits.MaxSecretsPerSession < 1 {
		return fmt.Errorf("limits.max_secrets_per_session must be positive, got %d", c.Limits.MaxSecretsPerSession)
	}
	if c.Limits.SessionTTL <= 0 {
		return fmt.Errorf("limits.session_ttl must be positive, got %s", c.Limits.SessionTTL)
	}
	switch c.Storage.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("storage.type must be \"memory\" or \"redis\", got %q", c.Storage.Type)
	}
	return nil
}

// ApplyPatterns registers custom rules and applies state overrides to the
// registry. Each change lands as one atomic snapshot swap, so concurrent
// detection sees either the old rule set or the new one.
func (c *Config) ApplyPatterns(reg *pattern.Registry) error {
	for _, cp := range c.Patterns.Custom {
		st := pattern.StateEnabled
		if cp.State != "" {
			var err error
			if st, err = pattern.ParseState(cp.State); err != nil {
				return err
			}
		}
		rule := pattern.Rule{
			ID:         cp.ID,
			Name:       cp.Name,
			Expr:       cp.Expr,
			Keywords:   cp.Keywords,
			Prefix:     cp.Prefix,
			MinEntropy: cp.MinEntropy,
			State:      st,
		}
		if err := reg.Register(rule); err != nil {
			return fmt.Errorf("custom pattern %q: %w", cp.ID, err)
		}
	}

	for id, state := range c.Patterns.States {
		st, err := pattern.ParseState(state)
		if err != nil {
			return fmt.Errorf("pattern state for %q: %w", id, err)
		}
		if err := reg.SetState(id, st); err != nil {
			return err
		}
	}
	return nil
}

// sanitizePath cleans a config file path so a relative path cannot escape
// the working directory.
func sanitizePath(path string) string {
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		for len(cleaned) > 2 && cleaned[:3] == "../" {
			cleaned = cleaned[3:]
		}
		if cleaned == ".." {
			cleaned = "config.yaml"
		}
	}
	return cleaned
}
