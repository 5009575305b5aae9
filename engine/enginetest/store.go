// Package enginetest provides in-memory engines and storage for tests.
package enginetest

import (
	"errors"
	"sync"
)

// ErrWriteFailed is returned by MemStore.Write while FailWrites is set.
var ErrWriteFailed = errors.New("injected write failure")

// MemStore is an in-memory lncore.BlobStore.  Reopen-style tests share one
// MemStore between the "before" and "after" instances.
type MemStore struct {
	mtx        sync.Mutex
	data       map[string][]byte
	failWrites bool
	writes     int
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (m *MemStore) Read(key string) ([]byte, bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *MemStore) Write(key string, value []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	m.writes++
	m.data[key] = append([]byte{}, value...)
	return nil
}

// SetFailWrites makes every following Write fail (or succeed again).
func (m *MemStore) SetFailWrites(fail bool) {
	m.mtx.Lock()
	m.failWrites = fail
	m.mtx.Unlock()
}

// Writes counts successful writes.
func (m *MemStore) Writes() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.writes
}

// Put stores raw bytes, e.g. to simulate corrupted state.
func (m *MemStore) Put(key string, value []byte) {
	m.mtx.Lock()
	m.data[key] = value
	m.mtx.Unlock()
}
