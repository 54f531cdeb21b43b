package storage

import (
	"errors"
	"sync"
)

// ErrSaveFailed is returned by a Memory backend whose saves are failing.
var ErrSaveFailed = errors.New("save failed")

// Memory keeps documents in a map. It is safe for concurrent use and is
// mainly used by tests, which can make saves fail on purpose.
type Memory struct {
	mu    sync.Mutex
	docs  map[string][]byte
	fail  map[string]bool
	saves map[string]int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string][]byte),
		fail:  make(map[string]bool),
		saves: make(map[string]int),
	}
}

// Load implements Backend.
func (m *Memory) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save implements Backend.
func (m *Memory) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail[key] || m.fail["*"] {
		return ErrSaveFailed
	}
	m.docs[key] = append([]byte(nil), data...)
	m.saves[key]++
	return nil
}

// Put stores a raw document, bypassing failure injection.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
}

// FailSaves makes Save fail for key ("*" for every key) until cleared.
func (m *Memory) FailSaves(key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[key] = fail
}

// Saves returns how many successful saves were made for key.
func (m *Memory) Saves(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[key]
}
