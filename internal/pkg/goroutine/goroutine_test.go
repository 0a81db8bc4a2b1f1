package goroutine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestManager_CollectsErrors(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	boom := errors.New("boom")

	var ran atomic.Int32
	m.Go(context.Background(), "ok", func(context.Context) error { ran.Add(1); return nil })
	m.Go(context.Background(), "bad", func(context.Context) error { ran.Add(1); return boom })

	err := m.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "bad:") {
		t.Fatalf("Wait() error = %q, want task name prefix", err)
	}
	if ran.Load() != 2 {
		t.Fatalf("ran = %d, want 2", ran.Load())
	}
}

func TestManager_CanceledIsClean(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(1)

	started := make(chan struct{})
	m.Go(ctx, "loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	cancel()

	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v, want nil", err)
	}
}

func TestManager_RecoversPanic(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	m.Go(context.Background(), "panicky", func(context.Context) error { panic("kaboom") })

	err := m.Wait()
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Wait() error = %v, want panic error", err)
	}
}

func TestManager_RefusesAfterWaitAndAtLimit(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	release := make(chan struct{})

	if !m.Go(context.Background(), "block", func(context.Context) error { <-release; return nil }) {
		t.Fatal("first Go() = false, want true")
	}
	if m.Go(context.Background(), "extra", func(context.Context) error { return nil }) {
		t.Fatal("Go() at limit = true, want false")
	}

	close(release)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if m.Go(context.Background(), "late", func(context.Context) error { return nil }) {
		t.Fatal("Go() after Wait = true, want false")
	}
}

func TestManager_Nil(t *testing.T) {
	t.Parallel()

	var m *Manager
	if m.Go(context.Background(), "x", func(context.Context) error { return nil }) {
		t.Fatal("nil Go() = true")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("nil Wait() = %v", err)
	}
}
