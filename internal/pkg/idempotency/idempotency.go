// Package idempotency guards side effects so that a key runs at most once
// within a retention window.
package idempotency

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: operation already completed")
	ErrAlreadyFailed     = errors.New("idempotency: operation already failed")
	ErrInvalidState      = errors.New("idempotency: invalid state")
)

type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // another worker holds the key
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateError      State = "error"
)

func (s State) String() string {
	return string(s)
}

func parseState(v string) (State, error) {
	switch State(v) {
	case StateInProgress, StateCompleted, StateFailed:
		return State(v), nil
	default:
		return StateError, ErrInvalidState
	}
}

// Tracker stores the state of keyed operations.
type Tracker interface {
	// Acquire returns StateNone when the caller now owns key.
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	// MarkFailed records a failure. A zero ttl releases the key so it can be retried.
	MarkFailed(ctx context.Context, key string, ttl time.Duration) error
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
	retryable    bool
}

func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = lockDuration }
}

func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = stateTTL }
}

// WithRetryableFailure releases the key when fn fails instead of recording StateFailed.
func WithRetryableFailure() Option {
	return func(o *execOptions) { o.retryable = true }
}

// Exec runs fn once per key. A concurrent or repeated call gets one of the
// ErrAlready* errors without running fn.
func Exec(ctx context.Context, t Tracker, key string, fn func(context.Context) error, opts ...Option) error {
	eo := &execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(eo)
	}
	if eo.lockDuration <= 0 {
		eo.lockDuration = defaultLockDuration
	}
	if eo.stateTTL <= 0 {
		eo.stateTTL = defaultStateTTL
	}

	state, err := t.Acquire(ctx, key, eo.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	if err := fn(ctx); err != nil {
		ttl := eo.stateTTL
		if eo.retryable {
			ttl = 0
		}
		if markErr := t.MarkFailed(ctx, key, ttl); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}

	return t.MarkCompleted(ctx, key, eo.stateTTL)
}

// IsDuplicate reports whether err came from a key that was already handled or is being handled.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrAlreadyInProgress) || errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrAlreadyFailed)
}
