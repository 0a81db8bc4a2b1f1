package store

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/trace"
)

// Memory is the single-process store. One mutex serializes every mutation
// and no call performs I/O while holding it.
type Memory struct {
	ins instrument.Instrumentation

	mu        sync.Mutex
	records   map[string]entity.Record
	active    map[pairKey]string
	cooldowns map[pairKey]time.Time
}

func NewMemory(ins instrument.Instrumentation) *Memory {
	return &Memory{
		ins:       ins,
		records:   make(map[string]entity.Record),
		active:    make(map[pairKey]string),
		cooldowns: make(map[pairKey]time.Time),
	}
}

func (m *Memory) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("otp.outbound.store").Start(ctx, name)
}

func (m *Memory) Cooldown(ctx context.Context, identifier string, purpose entity.Purpose) (entity.Cooldown, error) {
	_, span := m.startSpan(ctx, "Memory.Cooldown")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.cooldowns[pairKey{identifier, purpose}]
	if !ok {
		return entity.Cooldown{}, goerror.ErrNotFound
	}
	return entity.Cooldown{Identifier: identifier, Purpose: purpose, Until: until}, nil
}

func (m *Memory) Issue(ctx context.Context, rec entity.Record, cooldownUntil time.Time) (entity.IssueResult, error) {
	_, span := m.startSpan(ctx, "Memory.Issue")
	defer span.End()

	key := pairKey{rec.Identifier, rec.Purpose}

	m.mu.Lock()
	defer m.mu.Unlock()

	if until, ok := m.cooldowns[key]; ok && until.After(rec.CreatedAt) {
		return entity.IssueResult{Throttled: true, CooldownUntil: until}, nil
	}

	var replaced string
	if prev, ok := m.active[key]; ok {
		if old, ok := m.records[prev]; ok && !old.Used {
			delete(m.records, prev)
			replaced = prev
		}
	}

	m.records[rec.ID] = rec
	m.active[key] = rec.ID
	m.cooldowns[key] = cooldownUntil

	return entity.IssueResult{CooldownUntil: cooldownUntil, Replaced: replaced}, nil
}

func (m *Memory) Get(ctx context.Context, id string) (entity.Record, error) {
	_, span := m.startSpan(ctx, "Memory.Get")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return entity.Record{}, goerror.ErrNotFound
	}
	return rec, nil
}

func (m *Memory) FindActive(ctx context.Context, identifier string, purpose entity.Purpose, now time.Time) (entity.Record, error) {
	_, span := m.startSpan(ctx, "Memory.FindActive")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.active[pairKey{identifier, purpose}]
	if !ok {
		return entity.Record{}, goerror.ErrNotFound
	}
	rec, ok := m.records[id]
	if !ok || !rec.IsActive(now) {
		return entity.Record{}, goerror.ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Attempt(ctx context.Context, id, identifier string, now time.Time) (entity.AttemptResult, error) {
	_, span := m.startSpan(ctx, "Memory.Attempt")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return entity.AttemptResult{Status: entity.AttemptNotFound}, nil
	}

	status := attemptOn(&rec, identifier, now)
	switch status {
	case entity.AttemptExpired, entity.AttemptExhausted:
		m.deleteLocked(id)
	case entity.AttemptGranted:
		m.records[id] = rec
	}

	return entity.AttemptResult{Status: status, Record: rec}, nil
}

func (m *Memory) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	_, span := m.startSpan(ctx, "Memory.MarkUsed")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.Used {
		return false, nil
	}

	rec.Used = true
	rec.VerifiedAt = &at
	m.records[id] = rec

	key := pairKey{rec.Identifier, rec.Purpose}
	if m.active[key] == id {
		delete(m.active, key)
	}
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	_, span := m.startSpan(ctx, "Memory.Delete")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(id)
	return nil
}

// InvalidatePair deletes the active record of the pair, leaving the cooldown in place.
func (m *Memory) InvalidatePair(ctx context.Context, identifier string, purpose entity.Purpose) (int, error) {
	_, span := m.startSpan(ctx, "Memory.InvalidatePair")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.active[pairKey{identifier, purpose}]
	if !ok {
		return 0, nil
	}
	if _, exists := m.records[id]; !exists {
		delete(m.active, pairKey{identifier, purpose})
		return 0, nil
	}
	m.deleteLocked(id)
	return 1, nil
}

func (m *Memory) Sweep(ctx context.Context, now time.Time) (entity.SweepResult, error) {
	_, span := m.startSpan(ctx, "Memory.Sweep")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	var res entity.SweepResult
	for id, rec := range m.records {
		if rec.Used || rec.ExpiresAt.Before(now) {
			m.deleteLocked(id)
			res.Records++
		}
	}
	for key, until := range m.cooldowns {
		if until.Before(now) {
			delete(m.cooldowns, key)
			res.Cooldowns++
		}
	}
	return res, nil
}

func (m *Memory) Scan(ctx context.Context) ([]entity.Record, []entity.Cooldown, error) {
	_, span := m.startSpan(ctx, "Memory.Scan")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]entity.Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	cooldowns := make([]entity.Cooldown, 0, len(m.cooldowns))
	for key, until := range m.cooldowns {
		cooldowns = append(cooldowns, entity.Cooldown{Identifier: key.identifier, Purpose: key.purpose, Until: until})
	}
	return records, cooldowns, nil
}

func (m *Memory) deleteLocked(id string) {
	rec, ok := m.records[id]
	if !ok {
		return
	}
	delete(m.records, id)

	key := pairKey{rec.Identifier, rec.Purpose}
	if m.active[key] == id {
		delete(m.active, key)
	}
}
