package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	audio  []byte
	format string
}

// Memory is a bounded in-process audio cache with FIFO eviction. The lock is
// scoped to map access only; synthesis itself always happens outside it.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	order   []string
	maxSize int

	hits   uint64
	misses uint64
}

func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Memory{
		entries: make(map[string]memoryEntry, maxSize),
		maxSize: maxSize,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, "", false, nil
	}
	m.hits++
	return e.audio, e.format, true, nil
}

func (m *Memory) Set(_ context.Context, key string, audio []byte, format string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.maxSize {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = memoryEntry{audio: audio, format: format}
	return nil
}

func (m *Memory) Stats() (hits, misses uint64, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses, len(m.entries)
}
