package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Validate checks the configuration and reports every problem at once
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("version: unsupported version %d, expected 1", cfg.Version))
	}

	if cfg.Store.Capacity < 0 {
		errs = append(errs, fmt.Sprintf("store.capacity: must be non-negative, got %d", cfg.Store.Capacity))
	}
	if cfg.Store.SubscriptionBuffer < 0 {
		errs = append(errs, fmt.Sprintf("store.subscription_buffer: must be non-negative, got %d", cfg.Store.SubscriptionBuffer))
	}

	if cfg.Gate.Taps < 0 {
		errs = append(errs, fmt.Sprintf("gate.taps: must be non-negative, got %d", cfg.Gate.Taps))
	}
	if err := checkDuration(cfg.Gate.Window); err != nil {
		errs = append(errs, fmt.Sprintf("gate.window: %v", err))
	}
	if cfg.Gate.Lockout.Threshold < 0 {
		errs = append(errs, fmt.Sprintf("gate.lockout.threshold: must be non-negative, got %d", cfg.Gate.Lockout.Threshold))
	}
	if err := checkDuration(cfg.Gate.Lockout.Duration); err != nil {
		errs = append(errs, fmt.Sprintf("gate.lockout.duration: %v", err))
	}

	switch cfg.Redact.Mode {
	case "", "mask":
	case "hash":
		if cfg.Redact.Salt == "" {
			errs = append(errs, "redact.salt: required when mode is hash")
		}
	default:
		errs = append(errs, fmt.Sprintf("redact.mode: must be mask or hash, got %q", cfg.Redact.Mode))
	}
	for i, rule := range cfg.Redact.Rules {
		if rule.Pattern == "" {
			errs = append(errs, fmt.Sprintf("redact.rules[%d]: pattern is required", i))
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("redact.rules[%d] (%s): %v", i, rule.Name, err))
		}
	}

	if sq := cfg.Persistence.SQLite; sq != nil {
		if sq.Path == "" {
			errs = append(errs, "persistence.sqlite.path: required when the section is present")
		}
		if sq.MaxRows < 0 {
			errs = append(errs, fmt.Sprintf("persistence.sqlite.max_rows: must be non-negative, got %d", sq.MaxRows))
		}
		if err := checkDuration(sq.MaxAge); err != nil {
			errs = append(errs, fmt.Sprintf("persistence.sqlite.max_age: %v", err))
		}
	}
	if pg := cfg.Persistence.Postgres; pg != nil && pg.DSN == "" {
		errs = append(errs, "persistence.postgres.dsn: required when the section is present")
	}
	if err := checkDuration(cfg.Persistence.FlushInterval); err != nil {
		errs = append(errs, fmt.Sprintf("persistence.flush_interval: %v", err))
	}
	if cfg.Persistence.MaxBatch < 0 {
		errs = append(errs, fmt.Sprintf("persistence.max_batch: must be non-negative, got %d", cfg.Persistence.MaxBatch))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// checkDuration validates an optional duration string
func checkDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return fmt.Errorf("must be non-negative, got %s", s)
	}
	return nil
}
