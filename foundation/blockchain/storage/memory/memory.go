// Package memory implements the ability to read and write blobs to memory
// using a map.
package memory

import (
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// Memory represents the serialization implementation for reading and storing
// blobs in memory. This implements the storage.Blobs interface.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Read returns a copy of the named blob.
func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.blobs[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return append([]byte{}, data...), nil
}

// Write stores a copy of the blob.
func (m *Memory) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte{}, data...)

	return nil
}

// Names returns the names of the stored blobs.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}

	return names
}
