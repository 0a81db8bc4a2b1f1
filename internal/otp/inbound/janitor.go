package inbound

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

var ErrJanitorRunning = errors.New("otp: janitor is already running")

const defaultJanitorInterval = time.Minute

// Janitor periodically removes expired records and elapsed cooldowns.
type Janitor struct {
	sw       sweeper
	interval time.Duration
	running  *atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJanitor(sw sweeper, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}

	return &Janitor{
		sw:       sw,
		interval: interval,
		running:  atomic.NewBool(false),
	}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (j *Janitor) Run(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		return ErrJanitorRunning
	}
	defer j.running.Store(false)

	slog.InfoContext(ctx, "otp janitor started", "interval", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "otp janitor stopped")
			return nil
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	res, err := j.sw.Sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to sweep otp store", "error", err)
		return
	}

	if res.Records > 0 || res.Cooldowns > 0 {
		slog.InfoContext(ctx, "otp janitor swept store", "records", res.Records, "cooldowns", res.Cooldowns)
	}
}

// Start runs the janitor in the background until Stop is called or ctx ends.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.done != nil || j.running.Load() {
		return ErrJanitorRunning
	}

	rctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	j.cancel = cancel
	j.done = done

	go func() {
		defer close(done)
		if err := j.Run(rctx); err != nil {
			slog.ErrorContext(rctx, "otp janitor exited", "error", err)
		}
	}()

	return nil
}

// Stop cancels a janitor started with Start and waits for it, or for ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) Running() bool {
	return j.running.Load()
}
