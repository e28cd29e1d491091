package persist

import (
	"context"
	"errors"
)

// ErrUnavailable wraps storage read/write failures. Callers of
// Console.Start and Console.SetEnabled can match it with errors.Is and
// keep going: a broken flag store never makes the console unusable.
var ErrUnavailable = errors.New("flag storage unavailable")

// FlagStore persists the console's enabled flag across restarts. It is
// the only durable state in the core; no schema exists beyond one
// boolean under a fixed key.
type FlagStore interface {
	// ReadFlag returns the last persisted value. ok is false when no
	// preference has been recorded yet, which is distinct from a
	// stored false.
	ReadFlag(ctx context.Context) (value bool, ok bool, err error)

	// WriteFlag persists the value. The write is atomic: a crash
	// mid-write leaves either the old value or the new one, never a
	// torn record.
	WriteFlag(ctx context.Context, value bool) error
}
