// Package storage provides the single local key-value slot the data layer
// persists into, with a byte quota modeled after browser local storage.
package storage

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by Set when the write would push total
// stored bytes past the slot's quota.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// DefaultQuota is the default total-size cap in bytes.
const DefaultQuota = 5 << 20

// KV is the storage slot. One writer context is assumed; implementations
// only need to be safe against the autosave timer goroutine.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool)

	// Set stores value under key. Returns ErrQuotaExceeded when the write
	// would exceed the quota.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the underlying resources.
	Close() error
}

// Mem is an in-memory KV used by tests and the pure legacy-import harness.
type Mem struct {
	mu    sync.Mutex
	quota int
	data  map[string]string
}

// NewMem creates an in-memory slot. quota <= 0 means unlimited.
func NewMem(quota int) *Mem {
	return &Mem{quota: quota, data: make(map[string]string)}
}

func (m *Mem) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Mem) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		total := len(key) + len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	return nil
}

func (m *Mem) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Mem) Close() error { return nil }
