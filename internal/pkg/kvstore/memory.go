package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local Store. Expired keys are dropped lazily on access.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clocker
	data  map[string]memEntry
}

// NewMemory returns an empty Memory store. A nil clock uses wall time.
func NewMemory(c clock.Clocker) *Memory {
	if c == nil {
		c = clock.New()
	}
	return &Memory{clock: c, data: make(map[string]memEntry)}
}

// lookup must be called with mu held.
func (m *Memory) lookup(key string, now time.Time) (memEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		delete(m.data, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e, ok := m.lookup(key, now)
	if !ok {
		e = memEntry{value: "0", expiresAt: now.Add(ttl)}
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, 0, unavailable(err)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	if e.expiresAt.IsZero() {
		e.expiresAt = now.Add(ttl)
	}
	m.data[key] = e

	return n, e.expiresAt.Sub(now), nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.clock.Now())
	if !ok {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (m *Memory) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e, ok := m.lookup(key, now)
	if !ok || e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(now), nil
}

func (m *Memory) DelIfEqual(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, m.clock.Now())
	if !ok || e.value != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// Ping always succeeds.
func (*Memory) Ping(context.Context) error { return nil }
