package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// responder makes Ack/Nack idempotent for every driver.
type responder struct {
	done atomic.Bool
}

// claim returns true only for the first Ack/Nack on a message.
func (r *responder) claim() bool {
	return r.done.CompareAndSwap(false, true)
}

// deliver runs handler with panic recovery and applies auto-ack.
func deliver(ctx context.Context, kind string, msg Message, handler Handler, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error {
		return handler(ctx, msg)
	})

	if !autoAck {
		return herr
	}

	if herr == nil {
		return msg.Ack(ctx)
	}

	if err := msg.Nack(ctx); err != nil {
		return err
	}
	return herr
}

// runWorkers starts n goroutines draining in through fn and returns a WaitGroup
// that completes once in is closed and drained.
func runWorkers[T any](n int, in <-chan T, fn func(T)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for item := range in {
				fn(item)
			}
		})
	}
	return &wg
}

func callHandlerWithRecover(ctx context.Context, kind string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", string(stack))
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", paths)
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return fn()
}

func logDeliverError(ctx context.Context, kind, topic string, err error) {
	if err != nil {
		slog.WarnContext(ctx, "message handling failed", "kind", kind, "topic", topic, "error", err)
	}
}
