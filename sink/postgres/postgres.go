// Package postgres persists entries to a PostgreSQL table, for
// deployments that ship console logs to shared infrastructure instead
// of a local file.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serwidlick/backstage/logs"
)

const schema = `
CREATE TABLE IF NOT EXISTS backstage_entries (
	id      BIGSERIAL PRIMARY KEY,
	ts      TIMESTAMPTZ NOT NULL,
	level   TEXT NOT NULL,
	tag     TEXT NOT NULL,
	message TEXT NOT NULL,
	stack   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_backstage_entries_ts ON backstage_entries(ts);
`

const insertSQL = `INSERT INTO backstage_entries (ts, level, tag, message, stack) VALUES ($1, $2, $3, $4, $5)`

// BatchError reports which entry of a batch failed to insert
type BatchError struct {
	Index int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch entry %d of %d: %v", e.Index+1, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Sink writes entry batches to PostgreSQL through a pgx pool
type Sink struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, verifies the connection, and ensures the
// backstage_entries table exists
func Open(ctx context.Context, dsn string) (*Sink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// A log sink is a light writer; a handful of connections is plenty
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Sink{pool: pool}, nil
}

// WriteBatch queues one insert per entry and sends them as a single
// pgx batch. The first failed insert aborts with a BatchError naming
// the offending entry.
func (s *Sink) WriteBatch(ctx context.Context, entries []logs.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertSQL,
			e.Timestamp.UTC(),
			e.Level.String(),
			e.Tag,
			e.Message,
			e.Stack,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return &BatchError{Index: i, Total: len(entries), Err: err}
		}
	}

	return nil
}

// Tail returns up to limit stored entries, newest first
func (s *Sink) Tail(ctx context.Context, limit int) ([]logs.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ts, level, tag, message, stack FROM backstage_entries ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []logs.Entry
	for rows.Next() {
		var level string
		var e logs.Entry
		if err := rows.Scan(&e.Timestamp, &level, &e.Tag, &e.Message, &e.Stack); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.Level, err = logs.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("failed to parse stored level: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the connection pool
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
