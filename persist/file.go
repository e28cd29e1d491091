package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirName is the dot directory used when no path is given
	DefaultDirName = ".backstage"

	// DefaultFileName is the flag file name inside the state directory
	DefaultFileName = "state.json"
)

// flagDocument is the on-disk layout. A single boolean under a fixed
// key, plus the write time for humans inspecting the file.
type flagDocument struct {
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore persists the enabled flag as a small JSON file. Writes go
// through a temp file in the same directory followed by a rename, so a
// crash mid-write leaves the previous file intact.
type FileStore struct {
	path string
	err  error
}

// NewFileStore creates a store writing to the given path. An empty
// path uses ~/.backstage/state.json; if the home directory cannot be
// resolved, ReadFlag and WriteFlag report ErrUnavailable.
func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			s.err = fmt.Errorf("%w: resolving home directory: %v", ErrUnavailable, err)
			return s
		}
		s.path = filepath.Join(home, DefaultDirName, DefaultFileName)
	}
	return s
}

// Path returns the file the flag is stored in
func (s *FileStore) Path() string {
	return s.path
}

// ReadFlag loads the persisted value. A missing file means no
// preference has been recorded yet (ok=false, no error).
func (s *FileStore) ReadFlag(ctx context.Context) (bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return false, false, err
	}
	if s.err != nil {
		return false, false, s.err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, s.path, err)
	}

	var doc flagDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, false, fmt.Errorf("%w: parsing %s: %v", ErrUnavailable, s.path, err)
	}

	return doc.Enabled, true, nil
}

// WriteFlag persists the value atomically
func (s *FileStore) WriteFlag(ctx context.Context, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrUnavailable, dir, err)
	}

	data, err := json.MarshalIndent(flagDocument{Enabled: value, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling flag: %v", ErrUnavailable, err)
	}

	// Write-then-rename keeps the old value visible until the new one
	// is durable
	tmp, err := os.CreateTemp(dir, DefaultFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: syncing temp file: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %v", ErrUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: setting permissions: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", ErrUnavailable, s.path, err)
	}

	return nil
}
