package cachetree

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store reads and writes the cache document at a fixed path
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store for the document at path
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the document location
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing document yields an empty forest and
// found=false; any other read or parse failure is returned.
func (s *Store) Load() (forest *Forest, found bool, err error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewForest(), false, nil
		}
		return nil, false, fmt.Errorf("reading cache %s: %w", s.path, err)
	}

	forest, err = Decode(bytes.NewReader(data))
	if err != nil {
		return nil, true, fmt.Errorf("cache %s: %w", s.path, err)
	}
	return forest, true, nil
}

// Save overwrites the document with the forest
func (s *Store) Save(forest *Forest) error {
	var buf bytes.Buffer
	if err := Encode(&buf, forest); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing cache %s: %w", s.path, err)
	}
	return nil
}
