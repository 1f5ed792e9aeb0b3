package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// memorySweepInterval bounds how often Set scans for expired entries.
const memorySweepInterval = time.Minute

// memoryEntry stores a value with its expiry; zero expires means no expiry.
type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory keeps entries in a process-local map. Expired entries are dropped on access and
// swept from Set at most once per memorySweepInterval.
type Memory struct {
	mu        sync.Mutex
	items     map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryEntry), now: time.Now}
}

// Get returns a copy of the value for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return bytes.Clone(entry.value), nil
}

// Set stores a copy of value; ttl <= 0 keeps it until deleted.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= memorySweepInterval {
		m.sweepLocked(now)
		m.lastSweep = now
	}
	entry := memoryEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	m.items[key] = entry
	return nil
}

func (m *Memory) sweepLocked(now time.Time) {
	for key, entry := range m.items {
		if !entry.expires.IsZero() && !now.Before(entry.expires) {
			delete(m.items, key)
		}
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Close drops every entry.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryEntry)
	return nil
}
