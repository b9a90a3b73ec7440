// Package session persists the running transcript between invocations.
//
// The whole transcript lives in one plain-text file. It is read in full
// before every question and rewritten in full afterwards.
package session

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2/maybe"
)

// Store reads and writes the transcript file.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the transcript file path.
func (s *Store) Path() string { return s.path }

// Read returns the transcript. A missing file is an empty transcript, not an error.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// Write replaces the transcript with text.
// On Unix the file is swapped in atomically so a failed write leaves the old
// transcript intact; on Windows it is rewritten in place. An existing file
// keeps its permissions.
func (s *Store) Write(text string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := maybe.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return err
	}
	slog.Debug("transcript written", "path", s.path, "bytes", len(text))
	return nil
}

// Clear truncates the transcript to empty.
func (s *Store) Clear() error {
	return s.Write("")
}
