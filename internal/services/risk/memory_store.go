package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const memorySweepEvery = 1024

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

// MemorySignalStore is a process-local SignalStore for single-node
// deployments and tests. Increments are serialized by one mutex.
type MemorySignalStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	values   map[string]memoryValue
	ops      int
	now      func() time.Time
}

// NewMemorySignalStore creates an empty in-memory store.
func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{
		counters: make(map[string]*memoryCounter),
		values:   make(map[string]memoryValue),
		now:      time.Now,
	}
}

// WithClock overrides the store's time source.
func (s *MemorySignalStore) WithClock(now func() time.Time) *MemorySignalStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemorySignalStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++

	s.ops++
	if s.ops%memorySweepEvery == 0 {
		s.sweep(now)
	}
	return c.count, nil
}

func (s *MemorySignalStore) Count(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expiresAt) {
		return 0, nil
	}
	return c.count, nil
}

func (s *MemorySignalStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	v, ok := s.values[key]
	expired := ok && !s.now().Before(v.expiresAt)
	if expired {
		delete(s.values, key)
	}
	s.mu.Unlock()

	if !ok || expired {
		return false, nil
	}
	if err := json.Unmarshal(v.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *MemorySignalStore) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	s.mu.Lock()
	s.values[key] = memoryValue{data: data, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Len returns the number of live counters and values.
func (s *MemorySignalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.counters) + len(s.values)
}

// sweep drops expired entries. Caller holds s.mu.
func (s *MemorySignalStore) sweep(now time.Time) {
	for k, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, k)
		}
	}
	for k, v := range s.values {
		if !now.Before(v.expiresAt) {
			delete(s.values, k)
		}
	}
}
