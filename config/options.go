package config

import (
	"time"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/gate"
	"github.com/serwidlick/backstage/logs"
	"github.com/serwidlick/backstage/persist"
	"github.com/serwidlick/backstage/redact"
	"github.com/serwidlick/backstage/sink"
	"github.com/serwidlick/backstage/sink/sqlite"
)

// Options materializes console options from a validated config.
// Sink writers are not opened here; use SQLiteSink and PostgresDSN to
// get their settings and open them at the call site that owns their
// lifecycle.
func (c *Config) Options() backstage.Options {
	opts := backstage.Options{
		DefaultEnabled: c.DefaultEnabled,
		Store: logs.StoreOptions{
			Capacity:           c.Store.Capacity,
			SubscriptionBuffer: c.Store.SubscriptionBuffer,
		},
		Capture: backstage.CaptureOptions{
			Print:   c.Capture.Print,
			Slog:    c.Capture.Slog,
			Errors:  c.Capture.Errors,
			Network: c.Capture.Network,
			Guard:   c.Capture.Guard,
		},
		Gate: gate.Config{
			Passcode:         c.Gate.Passcode,
			Taps:             c.Gate.Taps,
			Window:           duration(c.Gate.Window),
			LockoutThreshold: c.Gate.Lockout.Threshold,
			LockoutDuration:  duration(c.Gate.Lockout.Duration),
		},
		Redact: redact.Options{
			Mode: redact.Mode(c.Redact.Mode),
			Salt: c.Redact.Salt,
		},
		SinkOptions: sink.Options{
			FlushInterval: duration(c.Persistence.FlushInterval),
			MaxBatch:      c.Persistence.MaxBatch,
		},
	}

	for _, rule := range c.Redact.Rules {
		opts.Redact.Rules = append(opts.Redact.Rules, redact.Rule{
			Name:    rule.Name,
			Pattern: rule.Pattern,
		})
	}

	if c.Persistence.Flag != nil {
		opts.Flag = persist.NewFileStore(c.Persistence.Flag.Path)
	}

	return opts
}

// SQLiteSink returns the sqlite sink settings, or ok=false when the
// section is absent
func (c *Config) SQLiteSink() (path string, opts sqlite.Options, ok bool) {
	sq := c.Persistence.SQLite
	if sq == nil {
		return "", sqlite.Options{}, false
	}
	return sq.Path, sqlite.Options{
		MaxRows: sq.MaxRows,
		MaxAge:  duration(sq.MaxAge),
	}, true
}

// PostgresDSN returns the postgres sink DSN, or ok=false when the
// section is absent
func (c *Config) PostgresDSN() (string, bool) {
	if c.Persistence.Postgres == nil {
		return "", false
	}
	return c.Persistence.Postgres.DSN, true
}

// duration parses a validated duration string; empty or unparseable
// strings fall back to zero so package defaults apply
func duration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
