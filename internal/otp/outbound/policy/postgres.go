package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

const (
	queryGetPolicy = `SELECT code_length, expiry_ms, max_attempts, resend_cooldown_ms, charset
FROM otp_policies WHERE purpose = $1`

	queryListPolicies = `SELECT purpose, code_length, expiry_ms, max_attempts, resend_cooldown_ms, charset
FROM otp_policies`

	queryUpsertPolicy = `INSERT INTO otp_policies (purpose, code_length, expiry_ms, max_attempts, resend_cooldown_ms, charset, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (purpose) DO UPDATE SET
	code_length = EXCLUDED.code_length,
	expiry_ms = EXCLUDED.expiry_ms,
	max_attempts = EXCLUDED.max_attempts,
	resend_cooldown_ms = EXCLUDED.resend_cooldown_ms,
	charset = EXCLUDED.charset,
	updated_at = now()`

	querySeedPolicy = `INSERT INTO otp_policies (purpose, code_length, expiry_ms, max_attempts, resend_cooldown_ms, charset)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (purpose) DO NOTHING`
)

// Postgres keeps the table in otp_policies so admin updates survive restarts
// and are shared between instances.
type Postgres struct {
	tracing
	conn *pgxpool.Pool
}

func NewPostgres(conn *pgxpool.Pool, ins instrument.Instrumentation) *Postgres {
	return &Postgres{tracing: tracing{ins: ins}, conn: conn}
}

// Seed inserts the config policies for purposes that have no row yet.
// Rows edited through the admin API are left untouched.
func (s *Postgres) Seed(ctx context.Context, seed map[entity.Purpose]entity.Policy) (err error) {
	ctx, span := s.startSpan(ctx, "Postgres.Seed")
	defer func() { s.endSpan(span, err) }()

	if len(seed) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for purpose, p := range seed {
		batch.Queue(querySeedPolicy, purpose.Key(), p.CodeLength, p.Expiry.Milliseconds(),
			p.MaxAttempts, p.ResendCooldown.Milliseconds(), p.Charset.String())
	}

	if err = s.conn.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed otp policies: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, purpose entity.Purpose) (_ entity.Policy, err error) {
	ctx, span := s.startSpan(ctx, "Postgres.Get")
	defer func() { s.endSpan(span, err) }()

	var (
		p          entity.Policy
		expiryMs   int64
		cooldownMs int64
		charset    string
	)
	err = s.conn.QueryRow(ctx, queryGetPolicy, purpose.Key()).
		Scan(&p.CodeLength, &expiryMs, &p.MaxAttempts, &cooldownMs, &charset)
	if err != nil {
		return entity.Policy{}, mapError(err)
	}

	p.Expiry = time.Duration(expiryMs) * time.Millisecond
	p.ResendCooldown = time.Duration(cooldownMs) * time.Millisecond
	p.Charset = entity.ParseCharset(charset)

	return p, nil
}

func (s *Postgres) Save(ctx context.Context, purpose entity.Purpose, p entity.Policy) (err error) {
	ctx, span := s.startSpan(ctx, "Postgres.Save")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryUpsertPolicy, purpose.Key(), p.CodeLength, p.Expiry.Milliseconds(),
		p.MaxAttempts, p.ResendCooldown.Milliseconds(), p.Charset.String())
	return mapError(err)
}

func (s *Postgres) List(ctx context.Context) (_ map[entity.Purpose]entity.Policy, err error) {
	ctx, span := s.startSpan(ctx, "Postgres.List")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListPolicies)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[entity.Purpose]entity.Policy)
	for rows.Next() {
		var (
			key        string
			p          entity.Policy
			expiryMs   int64
			cooldownMs int64
			charset    string
		)
		if err = rows.Scan(&key, &p.CodeLength, &expiryMs, &p.MaxAttempts, &cooldownMs, &charset); err != nil {
			return nil, mapError(err)
		}

		purpose := entity.ParsePurpose(key)
		if !purpose.IsValid() {
			continue
		}
		p.Expiry = time.Duration(expiryMs) * time.Millisecond
		p.ResendCooldown = time.Duration(cooldownMs) * time.Millisecond
		p.Charset = entity.ParseCharset(charset)
		out[purpose] = p
	}

	if err = rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}
	return err
}
