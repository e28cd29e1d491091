// Package config loads console configuration from YAML. Two file
// shapes are accepted: the current versioned shape and the legacy flat
// shape from early releases, which is migrated once at the load
// boundary so the rest of the system only ever sees a current Config.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config errors
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config is the top-level console configuration
type Config struct {
	Version        int               `yaml:"version"`
	DefaultEnabled bool              `yaml:"default_enabled"`
	EnvFile        string            `yaml:"env_file"`
	Store          StoreConfig       `yaml:"store"`
	Capture        CaptureConfig     `yaml:"capture"`
	Gate           GateConfig        `yaml:"gate"`
	Redact         RedactConfig      `yaml:"redact"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Web            *WebConfig        `yaml:"web,omitempty"`
}

// StoreConfig bounds the in-memory entry store
type StoreConfig struct {
	Capacity           int `yaml:"capacity"`
	SubscriptionBuffer int `yaml:"subscription_buffer"`
}

// CaptureConfig selects the capture sources. In YAML the whole section
// may also be a single boolean meaning everything on or off.
type CaptureConfig struct {
	Print   bool `yaml:"print"`
	Slog    bool `yaml:"slog"`
	Errors  bool `yaml:"errors"`
	Network bool `yaml:"network"`
	Guard   bool `yaml:"guard"`
}

// GateConfig configures the activation gate. Durations are
// time.ParseDuration strings.
type GateConfig struct {
	Passcode string        `yaml:"passcode"`
	Taps     int           `yaml:"taps"`
	Window   string        `yaml:"window"`
	Lockout  LockoutConfig `yaml:"lockout"`
}

// LockoutConfig enables the optional lockout after repeated failures
type LockoutConfig struct {
	Threshold int    `yaml:"threshold"`
	Duration  string `yaml:"duration"`
}

// RedactConfig configures entry redaction
type RedactConfig struct {
	Mode  string       `yaml:"mode"` // mask | hash
	Salt  string       `yaml:"salt"`
	Rules []RedactRule `yaml:"rules"`
}

// RedactRule is one named pattern
type RedactRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// PersistenceConfig selects what survives a restart. Sections left out
// are disabled.
type PersistenceConfig struct {
	Flag          *FlagConfig     `yaml:"flag,omitempty"`
	SQLite        *SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres      *PostgresConfig `yaml:"postgres,omitempty"`
	FlushInterval string          `yaml:"flush_interval"`
	MaxBatch      int             `yaml:"max_batch"`
}

// FlagConfig persists the enabled flag. An empty path means the
// default state file under the user's home directory.
type FlagConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig persists entries to a local database file
type SQLiteConfig struct {
	Path    string `yaml:"path"`
	MaxRows int    `yaml:"max_rows"`
	MaxAge  string `yaml:"max_age"`
}

// PostgresConfig persists entries to a PostgreSQL table
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// WebConfig exposes the HTTP surface. A nil section disables it.
type WebConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

// rawConfig defers the capture section, which is a bool-or-map union
type rawConfig struct {
	Version        int               `yaml:"version"`
	DefaultEnabled bool              `yaml:"default_enabled"`
	EnvFile        string            `yaml:"env_file"`
	Store          StoreConfig       `yaml:"store"`
	Capture        interface{}       `yaml:"capture"`
	Gate           GateConfig        `yaml:"gate"`
	Redact         RedactConfig      `yaml:"redact"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Web            *WebConfig        `yaml:"web,omitempty"`
}

// legacyConfig is the flat shape of early releases, recognized by the
// missing version key
type legacyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Password       string `yaml:"password"`
	LogLimit       int    `yaml:"log_limit"`
	Persist        bool   `yaml:"persist"`
	PersistPath    string `yaml:"persist_path"`
	CapturePrint   *bool  `yaml:"capture_print"`
	CaptureErrors  *bool  `yaml:"capture_errors"`
	CaptureNetwork *bool  `yaml:"capture_network"`
}

// defaultCapture matches the classic adapter set: output tee, error
// hook, and panic guard on; slog mirror and network tap opt-in
func defaultCapture() CaptureConfig {
	return CaptureConfig{Print: true, Errors: true, Guard: true}
}

// Default returns the configuration used when no file is present: the
// classic capture set, package-default store bounds, and the web
// surface on the default local address.
func Default() *Config {
	return &Config{
		Version: 1,
		Capture: defaultCapture(),
		Web:     &WebConfig{Addr: "127.0.0.1:7777"},
	}
}

// Load reads, migrates, expands, and validates a configuration file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	config, err := parseShape(data)
	if err != nil {
		return nil, err
	}

	env, err := LoadEnvFile(config.EnvFile)
	if err != nil {
		return nil, err
	}
	expandStrings(config, env)

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// parseShape detects which file shape the bytes carry and returns a
// current-shape Config either way
func parseShape(data []byte) (*Config, error) {
	var probe struct {
		Version *int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	if probe.Version == nil {
		var legacy legacyConfig
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		return migrateLegacy(legacy), nil
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	captureCfg, err := parseCaptureConfig(raw.Capture)
	if err != nil {
		return nil, err
	}

	return &Config{
		Version:        raw.Version,
		DefaultEnabled: raw.DefaultEnabled,
		EnvFile:        raw.EnvFile,
		Store:          raw.Store,
		Capture:        captureCfg,
		Gate:           raw.Gate,
		Redact:         raw.Redact,
		Persistence:    raw.Persistence,
		Web:            raw.Web,
	}, nil
}

// parseCaptureConfig handles the boolean and map forms of capture
func parseCaptureConfig(value interface{}) (CaptureConfig, error) {
	switch v := value.(type) {
	case nil:
		return defaultCapture(), nil
	case bool:
		return CaptureConfig{Print: v, Slog: v, Errors: v, Network: v, Guard: v}, nil
	case map[string]interface{}:
		// Unmarshal onto the defaults so unspecified sources keep them
		cfg := defaultCapture()
		data, err := yaml.Marshal(v)
		if err != nil {
			return cfg, fmt.Errorf("marshaling capture config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshaling capture config: %w", err)
		}
		return cfg, nil
	default:
		return CaptureConfig{}, fmt.Errorf("%w: capture must be a boolean or a map, got %T", ErrInvalidConfig, value)
	}
}

// migrateLegacy adapts the flat shape onto the current one
func migrateLegacy(legacy legacyConfig) *Config {
	cfg := &Config{
		Version:        1,
		DefaultEnabled: legacy.Enabled,
		Capture:        defaultCapture(),
	}
	cfg.Gate.Passcode = legacy.Password
	if legacy.LogLimit > 0 {
		cfg.Store.Capacity = legacy.LogLimit
	}
	if legacy.Persist {
		cfg.Persistence.Flag = &FlagConfig{Path: legacy.PersistPath}
	}
	if legacy.CapturePrint != nil {
		cfg.Capture.Print = *legacy.CapturePrint
	}
	if legacy.CaptureErrors != nil {
		cfg.Capture.Errors = *legacy.CaptureErrors
	}
	if legacy.CaptureNetwork != nil {
		cfg.Capture.Network = *legacy.CaptureNetwork
	}
	return cfg
}

// expandStrings applies ${VAR} expansion to the fields that carry
// secrets or paths. Redaction patterns are left alone: a $ there is a
// regex anchor, not a variable.
func expandStrings(cfg *Config, env map[string]string) {
	expand := func(s string) string {
		return os.Expand(s, func(key string) string {
			if v, ok := env[key]; ok {
				return v
			}
			return os.Getenv(key)
		})
	}

	cfg.Gate.Passcode = expand(cfg.Gate.Passcode)
	cfg.Redact.Salt = expand(cfg.Redact.Salt)
	if cfg.Persistence.Flag != nil {
		cfg.Persistence.Flag.Path = expand(cfg.Persistence.Flag.Path)
	}
	if cfg.Persistence.SQLite != nil {
		cfg.Persistence.SQLite.Path = expand(cfg.Persistence.SQLite.Path)
	}
	if cfg.Persistence.Postgres != nil {
		cfg.Persistence.Postgres.DSN = expand(cfg.Persistence.Postgres.DSN)
	}
	if cfg.Web != nil {
		cfg.Web.Addr = expand(cfg.Web.Addr)
		cfg.Web.Token = expand(cfg.Web.Token)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Web != nil && cfg.Web.Addr == "" {
		cfg.Web.Addr = "127.0.0.1:7777"
	}
}
