// Package storage provides the persistence port behind the reminder store:
// a key/document backend with file, SQLite and in-memory implementations.
package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Load when no document exists for a key.
var ErrNotFound = errors.New("document not found")

// Backend loads and saves whole JSON documents by key.
type Backend interface {
	// Load returns the stored document for key, or ErrNotFound.
	Load(key string) ([]byte, error)
	// Save replaces the document for key.
	Save(key string, data []byte) error
}

// Stamper is implemented by backends that can report when a document was
// last written without reading it.
type Stamper interface {
	// UpdatedAt returns the last write time of the document for key, or
	// ErrNotFound.
	UpdatedAt(key string) (time.Time, error)
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and parameterizes a backend.
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	// FileNames maps document keys to file names inside Dir.
	FileNames map[string]string
}

// Open builds the backend named in opts. The returned close function is
// never nil.
func Open(opts Options) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendFile:
		files, err := NewFiles(opts.Dir, opts.FileNames)
		if err != nil {
			return nil, noop, err
		}
		return files, noop, nil
	case BackendSQLite:
		db, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend: %s (supported: %s, %s, %s)",
			opts.Backend, BackendFile, BackendSQLite, BackendMemory)
	}
}
