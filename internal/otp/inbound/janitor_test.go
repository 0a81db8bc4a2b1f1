package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (entity.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return entity.SweepResult{Records: 1}, f.err
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestJanitor_SweepsUntilCanceled(t *testing.T) {
	sw := &fakeSweeper{}
	j := NewJanitor(sw, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return sw.count() >= 2 }, time.Second, time.Millisecond)
	assert.True(t, j.Running())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
	assert.False(t, j.Running())
}

func TestJanitor_KeepsRunningOnSweepError(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("redis down")}
	j := NewJanitor(sw, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = j.Run(ctx) }()

	require.Eventually(t, func() bool { return sw.count() >= 3 }, time.Second, time.Millisecond)
}

func TestJanitor_RejectsSecondRun(t *testing.T) {
	j := NewJanitor(&fakeSweeper{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = j.Run(ctx) }()

	require.Eventually(t, j.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, j.Run(ctx), ErrJanitorRunning)
}

func TestNewJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(&fakeSweeper{}, 0)
	assert.Equal(t, defaultJanitorInterval, j.interval)
}

func TestJanitor_StartStop(t *testing.T) {
	sw := &fakeSweeper{}
	j := NewJanitor(sw, 5*time.Millisecond)

	require.NoError(t, j.Start(context.Background()))
	assert.ErrorIs(t, j.Start(context.Background()), ErrJanitorRunning)

	require.Eventually(t, func() bool { return sw.count() >= 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Stop(ctx))
	assert.False(t, j.Running())

	require.NoError(t, j.Stop(ctx))
	require.NoError(t, j.Start(context.Background()))
	require.NoError(t, j.Stop(ctx))
}
