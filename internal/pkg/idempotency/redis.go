package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis tracks state in Redis using SETNX locks.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := r.prefix + key

	for range 2 {
		acquired, err := r.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}

		result, err := r.client.Get(ctx, fk).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return StateError, err
		}
		return parseState(result)
	}

	return StateError, ErrInvalidState
}

func (r *Redis) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, StateCompleted.String(), ttl).Err()
}

func (r *Redis) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Del(ctx, r.prefix+key).Err()
	}
	return r.client.Set(ctx, r.prefix+key, StateFailed.String(), ttl).Err()
}
