package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
)

func TestExec_RunsOnce(t *testing.T) {
	t.Parallel()

	tr := NewMemory(nil)
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	if err := Exec(context.Background(), tr, "evt-1", fn); err != nil {
		t.Fatalf("first Exec() error = %v", err)
	}
	err := Exec(context.Background(), tr, "evt-1", fn)
	if !errors.Is(err, ErrAlreadyCompleted) || !IsDuplicate(err) {
		t.Fatalf("second Exec() error = %v, want ErrAlreadyCompleted", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExec_FailureStates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	tr := NewMemory(nil)
	if err := Exec(context.Background(), tr, "a", fail); !errors.Is(err, boom) {
		t.Fatalf("Exec() error = %v, want boom", err)
	}
	if err := Exec(context.Background(), tr, "a", fail); !errors.Is(err, ErrAlreadyFailed) {
		t.Fatalf("Exec() error = %v, want ErrAlreadyFailed", err)
	}

	if err := Exec(context.Background(), tr, "b", fail, WithRetryableFailure()); !errors.Is(err, boom) {
		t.Fatalf("Exec() error = %v, want boom", err)
	}
	if err := Exec(context.Background(), tr, "b", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("retry Exec() error = %v, want nil", err)
	}
}

func TestMemory_InProgressAndExpiry(t *testing.T) {
	t.Parallel()

	fc := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewMemory(fc)
	ctx := context.Background()

	if s, _ := tr.Acquire(ctx, "k", time.Minute); s != StateNone {
		t.Fatalf("Acquire() = %s, want none", s)
	}
	if s, _ := tr.Acquire(ctx, "k", time.Minute); s != StateInProgress {
		t.Fatalf("Acquire() = %s, want in_progress", s)
	}

	fc.Advance(time.Minute)
	if s, _ := tr.Acquire(ctx, "k", time.Minute); s != StateNone {
		t.Fatalf("Acquire() after lock expiry = %s, want none", s)
	}

	_ = tr.MarkCompleted(ctx, "k", time.Hour)
	fc.Advance(59 * time.Minute)
	if s, _ := tr.Acquire(ctx, "k", time.Minute); s != StateCompleted {
		t.Fatalf("Acquire() = %s, want completed", s)
	}
}
