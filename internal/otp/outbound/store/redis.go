package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Key layout, all under the configured prefix:
//
//	record:{id}                     hash of the record fields
//	active:{purpose}:{identifier}   id of the pair's current record
//	cooldown:{purpose}:{identifier} cooldown end in unix ms
//
// Scripts touch keys of different slots, so the layout requires a single
// Redis node or a replicated primary, not Redis Cluster.

var issueScript = redis.NewScript(`
local cd = redis.call('GET', KEYS[3])
if cd and tonumber(cd) > tonumber(ARGV[1]) then
  return {1, cd, ''}
end
local replaced = ''
local prev = redis.call('GET', KEYS[2])
if prev then
  local pk = ARGV[4] .. prev
  if redis.call('HGET', pk, 'used') == '0' then
    redis.call('DEL', pk)
    replaced = prev
  end
end
redis.call('HSET', KEYS[1], unpack(ARGV, 5))
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
redis.call('SET', KEYS[2], ARGV[6], 'PXAT', ARGV[3])
if tonumber(ARGV[2]) > tonumber(ARGV[1]) then
  redis.call('SET', KEYS[3], ARGV[2], 'PXAT', ARGV[2])
else
  redis.call('DEL', KEYS[3])
end
return {0, ARGV[2], replaced}
`)

var attemptScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'used', 'expires_at', 'identifier', 'attempts', 'max_attempts', 'purpose', 'id')
if not f[1] then
  return {1}
end
local function drop()
  redis.call('DEL', KEYS[1])
  local ak = ARGV[3] .. f[6] .. ':' .. f[3]
  if redis.call('GET', ak) == f[7] then
    redis.call('DEL', ak)
  end
end
if f[1] == '1' then
  return {2}
end
if tonumber(ARGV[1]) > tonumber(f[2]) then
  drop()
  return {3}
end
if ARGV[2] ~= '' and ARGV[2] ~= f[3] then
  return {4}
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts > tonumber(f[5]) then
  drop()
  return {5}
end
return {6, redis.call('HGETALL', KEYS[1])}
`)

var markUsedScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'used', 'id', 'identifier', 'purpose')
if not f[1] or f[1] == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'used', '1', 'verified_at', ARGV[1])
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
local ak = ARGV[3] .. f[4] .. ':' .. f[3]
if redis.call('GET', ak) == f[2] then
  redis.call('DEL', ak)
end
return 1
`)

var deleteScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'id', 'identifier', 'purpose')
if not f[1] then
  return 0
end
redis.call('DEL', KEYS[1])
local ak = ARGV[1] .. f[3] .. ':' .. f[2]
if redis.call('GET', ak) == f[1] then
  redis.call('DEL', ak)
end
return 1
`)

var invalidatePairScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return 0
end
redis.call('DEL', KEYS[1])
return redis.call('DEL', ARGV[1] .. id)
`)

const (
	defaultRedisPrefix    = "otp:"
	defaultRedisRetention = time.Hour
)

type RedisOptions struct {
	// Prefix namespaces every key; defaults to "otp:".
	Prefix string
	// Retention keeps expired and used records past their deadline so they
	// can still be told apart from unknown IDs; Redis reclaims them afterwards.
	Retention time.Duration
}

// Redis is the shared store for multi-instance deployments. Issue, Attempt,
// MarkUsed and the deletes are Lua scripts, so each is atomic on the server.
type Redis struct {
	client    redis.UniversalClient
	ins       instrument.Instrumentation
	prefix    string
	retention time.Duration
}

func NewRedis(client redis.UniversalClient, ins instrument.Instrumentation, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRedisRetention
	}
	return &Redis{client: client, ins: ins, prefix: opts.Prefix, retention: opts.Retention}
}

func (r *Redis) recordPrefix() string { return r.prefix + "record:" }
func (r *Redis) activePrefix() string { return r.prefix + "active:" }
func (r *Redis) recordKey(id string) string {
	return r.recordPrefix() + id
}

func (r *Redis) activeKey(identifier string, p entity.Purpose) string {
	return r.activePrefix() + p.Key() + ":" + identifier
}

func (r *Redis) cooldownKey(identifier string, p entity.Purpose) string {
	return r.prefix + "cooldown:" + p.Key() + ":" + identifier
}

func (r *Redis) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.ins.Tracer("otp.outbound.store").Start(ctx, name)
}

func (r *Redis) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *Redis) Cooldown(ctx context.Context, identifier string, purpose entity.Purpose) (cd entity.Cooldown, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Cooldown")
	defer func() { r.endSpan(span, err) }()

	v, err := r.client.Get(ctx, r.cooldownKey(identifier, purpose)).Int64()
	if errors.Is(err, redis.Nil) {
		return entity.Cooldown{}, goerror.ErrNotFound
	}
	if err != nil {
		return entity.Cooldown{}, err
	}

	return entity.Cooldown{Identifier: identifier, Purpose: purpose, Until: time.UnixMilli(v)}, nil
}

func (r *Redis) Issue(ctx context.Context, rec entity.Record, cooldownUntil time.Time) (res entity.IssueResult, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Issue")
	defer func() { r.endSpan(span, err) }()

	keys := []string{
		r.recordKey(rec.ID),
		r.activeKey(rec.Identifier, rec.Purpose),
		r.cooldownKey(rec.Identifier, rec.Purpose),
	}
	args := []any{
		rec.CreatedAt.UnixMilli(),
		cooldownUntil.UnixMilli(),
		rec.ExpiresAt.Add(r.retention).UnixMilli(),
		r.recordPrefix(),
	}
	args = append(args, encodeRecord(rec)...)

	raw, err := issueScript.Run(ctx, r.client, keys, args...).Slice()
	if err != nil {
		return entity.IssueResult{}, fmt.Errorf("otp store: issue: %w", err)
	}
	if len(raw) != 3 {
		return entity.IssueResult{}, fmt.Errorf("otp store: issue: unexpected reply %v", raw)
	}

	until, err := strconv.ParseInt(fmt.Sprint(raw[1]), 10, 64)
	if err != nil {
		return entity.IssueResult{}, fmt.Errorf("otp store: issue: %w", err)
	}

	return entity.IssueResult{
		Throttled:     toInt64(raw[0]) == 1,
		CooldownUntil: time.UnixMilli(until),
		Replaced:      fmt.Sprint(raw[2]),
	}, nil
}

func (r *Redis) Get(ctx context.Context, id string) (rec entity.Record, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Get")
	defer func() { r.endSpan(span, err) }()

	m, err := r.client.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return entity.Record{}, err
	}
	if len(m) == 0 {
		return entity.Record{}, goerror.ErrNotFound
	}
	return decodeRecord(m)
}

func (r *Redis) FindActive(ctx context.Context, identifier string, purpose entity.Purpose, now time.Time) (rec entity.Record, err error) {
	ctx, span := r.startSpan(ctx, "Redis.FindActive")
	defer func() { r.endSpan(span, err) }()

	id, err := r.client.Get(ctx, r.activeKey(identifier, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return entity.Record{}, goerror.ErrNotFound
	}
	if err != nil {
		return entity.Record{}, err
	}

	rec, err = r.Get(ctx, id)
	if err != nil {
		return entity.Record{}, err
	}
	if !rec.IsActive(now) {
		return entity.Record{}, goerror.ErrNotFound
	}
	return rec, nil
}

func (r *Redis) Attempt(ctx context.Context, id, identifier string, now time.Time) (res entity.AttemptResult, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Attempt")
	defer func() { r.endSpan(span, err) }()

	raw, err := attemptScript.Run(ctx, r.client, []string{r.recordKey(id)}, now.UnixMilli(), identifier, r.activePrefix()).Slice()
	if err != nil {
		return entity.AttemptResult{}, fmt.Errorf("otp store: attempt: %w", err)
	}
	if len(raw) == 0 {
		return entity.AttemptResult{}, fmt.Errorf("otp store: attempt: empty reply")
	}

	status := entity.AttemptStatus(toInt64(raw[0]))
	if status != entity.AttemptGranted {
		return entity.AttemptResult{Status: status}, nil
	}
	if len(raw) != 2 {
		return entity.AttemptResult{}, fmt.Errorf("otp store: attempt: unexpected reply %v", raw)
	}

	pairs, ok := raw[1].([]any)
	if !ok {
		return entity.AttemptResult{}, fmt.Errorf("otp store: attempt: unexpected record reply %T", raw[1])
	}
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[fmt.Sprint(pairs[i])] = fmt.Sprint(pairs[i+1])
	}

	rec, err := decodeRecord(m)
	if err != nil {
		return entity.AttemptResult{}, err
	}
	return entity.AttemptResult{Status: status, Record: rec}, nil
}

func (r *Redis) MarkUsed(ctx context.Context, id string, at time.Time) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "Redis.MarkUsed")
	defer func() { r.endSpan(span, err) }()

	n, err := markUsedScript.Run(ctx, r.client, []string{r.recordKey(id)},
		at.UnixMilli(), at.Add(r.retention).UnixMilli(), r.activePrefix()).Int64()
	if err != nil {
		return false, fmt.Errorf("otp store: mark used: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Delete(ctx context.Context, id string) (err error) {
	ctx, span := r.startSpan(ctx, "Redis.Delete")
	defer func() { r.endSpan(span, err) }()

	if err := deleteScript.Run(ctx, r.client, []string{r.recordKey(id)}, r.activePrefix()).Err(); err != nil {
		return fmt.Errorf("otp store: delete: %w", err)
	}
	return nil
}

func (r *Redis) InvalidatePair(ctx context.Context, identifier string, purpose entity.Purpose) (n int, err error) {
	ctx, span := r.startSpan(ctx, "Redis.InvalidatePair")
	defer func() { r.endSpan(span, err) }()

	deleted, err := invalidatePairScript.Run(ctx, r.client, []string{r.activeKey(identifier, purpose)}, r.recordPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("otp store: invalidate pair: %w", err)
	}
	return int(deleted), nil
}

// Sweep is a backstop for key expiry: Redis already drops keys at their
// deadline plus retention, this removes dead entries as soon as they are dead.
func (r *Redis) Sweep(ctx context.Context, now time.Time) (res entity.SweepResult, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Sweep")
	defer func() { r.endSpan(span, err) }()

	nowMs := now.UnixMilli()

	err = r.scanKeys(ctx, r.recordPrefix()+"*", func(key string) error {
		f, err := r.client.HMGet(ctx, key, "used", "expires_at").Result()
		if err != nil {
			return err
		}
		if len(f) != 2 || f[0] == nil {
			return nil
		}
		exp, _ := strconv.ParseInt(fmt.Sprint(f[1]), 10, 64)
		if fmt.Sprint(f[0]) != "1" && exp >= nowMs {
			return nil
		}

		n, err := deleteScript.Run(ctx, r.client, []string{key}, r.activePrefix()).Int64()
		if err != nil {
			return err
		}
		res.Records += int(n)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("otp store: sweep records: %w", err)
	}

	err = r.scanKeys(ctx, r.prefix+"cooldown:*", func(key string) error {
		until, err := r.client.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if until >= nowMs {
			return nil
		}
		n, err := r.client.Del(ctx, key).Result()
		res.Cooldowns += int(n)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("otp store: sweep cooldowns: %w", err)
	}

	return res, nil
}

func (r *Redis) Scan(ctx context.Context) (records []entity.Record, cooldowns []entity.Cooldown, err error) {
	ctx, span := r.startSpan(ctx, "Redis.Scan")
	defer func() { r.endSpan(span, err) }()

	err = r.scanKeys(ctx, r.recordPrefix()+"*", func(key string) error {
		m, err := r.client.HGetAll(ctx, key).Result()
		if err != nil || len(m) == 0 {
			return err
		}
		rec, err := decodeRecord(m)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	cdPrefix := r.prefix + "cooldown:"
	err = r.scanKeys(ctx, cdPrefix+"*", func(key string) error {
		until, err := r.client.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		purpose, identifier, ok := strings.Cut(strings.TrimPrefix(key, cdPrefix), ":")
		if !ok {
			return nil
		}
		cooldowns = append(cooldowns, entity.Cooldown{
			Identifier: identifier,
			Purpose:    entity.ParsePurpose(purpose),
			Until:      time.UnixMilli(until),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return records, cooldowns, nil
}

func (r *Redis) scanKeys(ctx context.Context, pattern string, fn func(key string) error) error {
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}

func encodeRecord(rec entity.Record) []any {
	verifiedAt := ""
	if rec.VerifiedAt != nil {
		verifiedAt = strconv.FormatInt(rec.VerifiedAt.UnixMilli(), 10)
	}
	used := "0"
	if rec.Used {
		used = "1"
	}

	// id must stay the first pair; issueScript reads it as ARGV[6].
	return []any{
		"id", rec.ID,
		"identifier", rec.Identifier,
		"code", rec.Code,
		"channel", rec.Channel.String(),
		"purpose", rec.Purpose.Key(),
		"attempts", rec.Attempts,
		"max_attempts", rec.MaxAttempts,
		"created_at", rec.CreatedAt.UnixMilli(),
		"expires_at", rec.ExpiresAt.UnixMilli(),
		"verified_at", verifiedAt,
		"used", used,
	}
}

func decodeRecord(m map[string]string) (entity.Record, error) {
	ints := make(map[string]int64, 5)
	for _, k := range []string{"attempts", "max_attempts", "created_at", "expires_at"} {
		v, err := strconv.ParseInt(m[k], 10, 64)
		if err != nil {
			return entity.Record{}, fmt.Errorf("otp store: decode %s: %w", k, err)
		}
		ints[k] = v
	}

	rec := entity.Record{
		ID:          m["id"],
		Identifier:  m["identifier"],
		Code:        m["code"],
		Channel:     entity.ParseChannel(m["channel"]),
		Purpose:     entity.ParsePurpose(m["purpose"]),
		Attempts:    int(ints["attempts"]),
		MaxAttempts: int(ints["max_attempts"]),
		CreatedAt:   time.UnixMilli(ints["created_at"]),
		ExpiresAt:   time.UnixMilli(ints["expires_at"]),
		Used:        m["used"] == "1",
	}
	if v := m["verified_at"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return entity.Record{}, fmt.Errorf("otp store: decode verified_at: %w", err)
		}
		t := time.UnixMilli(ms)
		rec.VerifiedAt = &t
	}
	return rec, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
