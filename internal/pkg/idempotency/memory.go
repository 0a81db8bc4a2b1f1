package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// Memory is a process-local Tracker.
type Memory struct {
	clock clock.Clocker

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(c clock.Clocker) *Memory {
	if c == nil {
		c = clock.New()
	}
	return &Memory{clock: c, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Acquire(_ context.Context, key string, lockDuration time.Duration) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return e.state, nil
	}

	m.entries[key] = memoryEntry{state: StateInProgress, expiresAt: now.Add(lockDuration)}
	return StateNone, nil
}

func (m *Memory) MarkCompleted(_ context.Context, key string, ttl time.Duration) error {
	m.set(key, StateCompleted, ttl)
	return nil
}

func (m *Memory) MarkFailed(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil
	}
	m.set(key, StateFailed, ttl)
	return nil
}

func (m *Memory) set(key string, s State, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{state: s, expiresAt: now.Add(ttl)}
}
