package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_Exec(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	tr := NewRedis(client, "")
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	if err := Exec(ctx, tr, "evt", fn, WithStateTTL(time.Minute)); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if err := Exec(ctx, tr, "evt", fn); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("Exec() error = %v, want ErrAlreadyCompleted", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	if s, err := tr.Acquire(ctx, "held", time.Minute); err != nil || s != StateNone {
		t.Fatalf("Acquire() = %s, %v", s, err)
	}
	if s, err := tr.Acquire(ctx, "held", time.Minute); err != nil || s != StateInProgress {
		t.Fatalf("Acquire() = %s, %v, want in_progress", s, err)
	}
}
