// Package store provides the key-value and blob storage backends used for
// idempotency marks and reminder ledgers. Backends are deliberately narrow:
// point get/set with TTL for marks, whole-value get/put for ledgers.
package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// KV is a point-lookup key-value store with expiring entries.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetTTL writes key with the given time-to-live.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// Blob is a whole-value text store. There is no append primitive: callers
// read, modify, and write the entire value back.
type Blob interface {
	// Get returns the content for key. A missing key yields "" with no error.
	Get(ctx context.Context, key string) (string, error)
	// Put replaces the entire content for key.
	Put(ctx context.Context, key, content string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process KV and Blob implementation, used by the chat
// command and by tests.
type Memory struct {
	mu    sync.Mutex
	kv    map[string]memoryEntry
	blobs map[string]string
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		kv:    make(map[string]memoryEntry),
		blobs: make(map[string]string),
		now:   time.Now,
	}
}

// SetClock overrides the expiry clock. Intended for tests.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.kv[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.kv, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.kv[key] = e
	return nil
}

func (m *Memory) Put(_ context.Context, key, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = content
	return nil
}

func (m *Memory) GetBlob(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[key], nil
}

// Memory implements Blob via GetBlob/Put; the method name differs from the
// interface because Get is taken by the KV side.
type memoryBlob struct{ m *Memory }

func (b memoryBlob) Get(ctx context.Context, key string) (string, error) {
	return b.m.GetBlob(ctx, key)
}

func (b memoryBlob) Put(ctx context.Context, key, content string) error {
	return b.m.Put(ctx, key, content)
}

// AsBlob adapts the Memory store to the Blob interface.
func (m *Memory) AsBlob() Blob { return memoryBlob{m} }

// sanitizeKey flattens a slash-separated storage key into a single path
// segment safe for filenames and flat key spaces.
func sanitizeKey(key string) string {
	replaced := strings.NewReplacer("/", "__", "\\", "__", "..", "_").Replace(key)
	return strings.Trim(replaced, "_ ")
}
