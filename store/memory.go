package store

import (
	"sync"
	"time"
)

// MemoryStore implements RecordStore with a process-local map. It is the
// default backend and the one used throughout the tests.
type MemoryStore struct {
	retention time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	records map[string]Record
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.retention = d }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an in-memory store with the default 30-day retention.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		retention: DefaultRetentionWindow,
		now:       time.Now,
		records:   make(map[string]Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a copy of the record under key, replacing any previous value.
func (s *MemoryStore) Put(key string, rec Record) error {
	payload := make([]byte, len(rec.Payload))
	copy(payload, rec.Payload)

	s.mu.Lock()
	s.records[key] = Record{Payload: payload, CreatedAt: rec.CreatedAt}
	s.mu.Unlock()
	return nil
}

// Get returns the record for key, evicting it first if it has outlived the
// retention window.
func (s *MemoryStore) Get(key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	if expired(rec, s.now(), s.retention) {
		delete(s.records, key)
		return Record{}, ErrNotFound
	}

	payload := make([]byte, len(rec.Payload))
	copy(payload, rec.Payload)
	return Record{Payload: payload, CreatedAt: rec.CreatedAt}, nil
}

// Delete removes the record for key and reports whether one existed.
func (s *MemoryStore) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[key]
	delete(s.records, key)
	return ok, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }
