package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Files stores one JSON document per key inside a directory.
type Files struct {
	dir   string
	names map[string]string
}

// NewFiles returns a file backend rooted at dir, creating it when needed.
// names overrides the file name used for a key; other keys are stored as
// "<key>.json".
func NewFiles(dir string, names map[string]string) (*Files, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f := &Files{dir: dir, names: make(map[string]string, len(names))}
	for k, v := range names {
		f.names[k] = v
	}
	return f, nil
}

// Path returns the file that holds the document for key.
func (f *Files) Path(key string) string {
	name, ok := f.names[key]
	if !ok || name == "" {
		name = key + ".json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.dir, name)
}

// Load implements Backend.
func (f *Files) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// UpdatedAt implements Stamper using the file's modification time.
func (f *Files) UpdatedAt(key string) (time.Time, error) {
	fi, err := os.Stat(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return fi.ModTime(), nil
}

// Save implements Backend. The document is written to a temporary file in
// the same directory and renamed over the old one.
func (f *Files) Save(key string, data []byte) error {
	path := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ".json")+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}
