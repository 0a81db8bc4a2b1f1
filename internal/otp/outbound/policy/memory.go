package policy

import (
	"context"
	"maps"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

// Memory is the process-local table; updates are lost on restart.
type Memory struct {
	tracing

	mu sync.RWMutex
	m  map[entity.Purpose]entity.Policy
}

func NewMemory(ins instrument.Instrumentation, seed map[entity.Purpose]entity.Policy) *Memory {
	m := make(map[entity.Purpose]entity.Policy, len(seed))
	maps.Copy(m, seed)

	return &Memory{tracing: tracing{ins: ins}, m: m}
}

func (s *Memory) Get(ctx context.Context, purpose entity.Purpose) (entity.Policy, error) {
	_, span := s.startSpan(ctx, "Memory.Get")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[purpose]
	if !ok {
		return entity.Policy{}, goerror.ErrNotFound
	}
	return p, nil
}

func (s *Memory) Save(ctx context.Context, purpose entity.Purpose, p entity.Policy) error {
	_, span := s.startSpan(ctx, "Memory.Save")
	defer span.End()

	s.mu.Lock()
	s.m[purpose] = p
	s.mu.Unlock()

	return nil
}

func (s *Memory) List(ctx context.Context) (map[entity.Purpose]entity.Policy, error) {
	_, span := s.startSpan(ctx, "Memory.List")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.m), nil
}
