// Package sqlite persists entries to a local SQLite database via the
// pure-Go modernc.org/sqlite driver, so captured logs survive process
// restarts without cgo or an external service.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/serwidlick/backstage/logs"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	ts      TEXT NOT NULL,
	level   TEXT NOT NULL,
	tag     TEXT NOT NULL,
	message TEXT NOT NULL,
	stack   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);
`

const insertSQL = `INSERT INTO entries (ts, level, tag, message, stack) VALUES (?, ?, ?, ?, ?)`

// Options bounds how much history the database keeps. Zero values
// mean unlimited.
type Options struct {
	MaxRows int           // keep at most this many newest rows
	MaxAge  time.Duration // drop rows older than this
}

// Sink writes entry batches to a SQLite file
type Sink struct {
	db   *sql.DB
	opts Options
}

// Open creates or opens the database at path and ensures the schema
func Open(path string, opts Options) (*Sink, error) {
	db, err := sql.Open("sqlite", path+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Single writer is enough for a batch sink and avoids lock churn
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Sink{db: db, opts: opts}, nil
}

// WriteBatch inserts all entries in one transaction, then enforces
// the retention limits
func (s *Sink) WriteBatch(ctx context.Context, entries []logs.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Level.String(),
			e.Tag,
			e.Message,
			e.Stack,
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("inserting entry: %w", err)
		}
	}
	stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	return s.enforceRetention(ctx)
}

func (s *Sink) enforceRetention(ctx context.Context) error {
	if s.opts.MaxRows > 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM entries WHERE id NOT IN (SELECT id FROM entries ORDER BY id DESC LIMIT ?)`,
			s.opts.MaxRows,
		)
		if err != nil {
			return fmt.Errorf("trimming rows: %w", err)
		}
	}

	if s.opts.MaxAge > 0 {
		cutoff := time.Now().Add(-s.opts.MaxAge).UTC().Format(time.RFC3339Nano)
		_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE ts < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("expiring rows: %w", err)
		}
	}

	return nil
}

// Tail returns up to limit stored entries, newest first
func (s *Sink) Tail(ctx context.Context, limit int) ([]logs.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, level, tag, message, stack FROM entries ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []logs.Entry
	for rows.Next() {
		var ts, level string
		var e logs.Entry
		if err := rows.Scan(&ts, &level, &e.Tag, &e.Message, &e.Stack); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing stored timestamp: %w", err)
		}
		if e.Level, err = logs.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("parsing stored level: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count reports how many entries the database holds
func (s *Sink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (s *Sink) Close() error {
	return s.db.Close()
}
