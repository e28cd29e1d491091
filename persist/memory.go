package persist

import (
	"context"
	"sync"
)

// MemoryStore is an in-process FlagStore for tests and hosts that do
// not want durable state. The zero value is ready to use.
type MemoryStore struct {
	mu    sync.Mutex
	value bool
	set   bool

	// ReadErr and WriteErr, when non-nil, are returned by the
	// corresponding operation; tests use them to simulate storage
	// failures
	ReadErr  error
	WriteErr error
}

// ReadFlag returns the stored value, or ok=false before any write
func (s *MemoryStore) ReadFlag(ctx context.Context) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return false, false, s.ReadErr
	}
	return s.value, s.set, nil
}

// WriteFlag stores the value
func (s *MemoryStore) WriteFlag(ctx context.Context, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.value = value
	s.set = true
	return nil
}

// Seed pre-populates the store, as if a previous process had written
func (s *MemoryStore) Seed(value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.set = true
}
