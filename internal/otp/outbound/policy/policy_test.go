package policy

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/migration"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const policiesYAML = `
modules:
  otp:
    policies:
      email_verification:
        code_length: 6
        expiry_seconds: 300
        max_attempts: 3
        resend_cooldown_seconds: 60
        charset: digits
      password_reset:
        code_length: 8
        expiry_seconds: 600
        max_attempts: 5
        resend_cooldown_seconds: 120
        charset: alphanumeric
      two_factor_auth:
        code_length: 2
        expiry_seconds: 60
        max_attempts: 3
        resend_cooldown_seconds: 30
        charset: digits
`

type repo interface {
	Get(ctx context.Context, purpose entity.Purpose) (entity.Policy, error)
	Save(ctx context.Context, purpose entity.Purpose, p entity.Policy) error
	List(ctx context.Context) (map[entity.Purpose]entity.Policy, error)
}

func seed(t *testing.T) map[entity.Purpose]entity.Policy {
	t.Helper()
	cfg, err := config.NewViperFromBytes("yaml", []byte(policiesYAML))
	require.NoError(t, err)
	return FromConfig(cfg)
}

func TestFromConfig(t *testing.T) {
	got := seed(t)

	require.Len(t, got, 2, "invalid two_factor_auth entry and unset purposes are skipped")
	assert.Equal(t, entity.Policy{
		CodeLength:     8,
		Expiry:         10 * time.Minute,
		MaxAttempts:    5,
		ResendCooldown: 2 * time.Minute,
		Charset:        entity.CharsetAlphanumeric,
	}, got[entity.PurposePasswordReset])
	_, ok := got[entity.PurposeTwoFactorAuth]
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	runRepo(t, NewMemory(instrument.NewNoop(), seed(t)))
}

func TestObject(t *testing.T) {
	stg := storage.NewMemory()
	runRepo(t, NewObject(stg, "otp", "", seed(t), instrument.NewNoop()))

	reloaded := NewObject(stg, "otp", "", nil, instrument.NewNoop())
	p, err := reloaded.Get(context.Background(), entity.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, 9, p.MaxAttempts, "a fresh reader sees the saved document")
}

func TestPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("otpgate"),
		tcpostgres.WithUsername("otpgate"),
		tcpostgres.WithPassword("otpgate"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Up(ctx, dsn, migrations.FS))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgres(pool, instrument.NewNoop())
	require.NoError(t, repo.Seed(ctx, seed(t)))
	runRepo(t, repo)

	require.NoError(t, repo.Seed(ctx, seed(t)))
	p, err := repo.Get(ctx, entity.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, 9, p.MaxAttempts, "seeding again keeps edited rows")
}

func runRepo(t *testing.T, r repo) {
	t.Helper()
	ctx := context.Background()

	p, err := r.Get(ctx, entity.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, 6, p.CodeLength)
	assert.Equal(t, 5*time.Minute, p.Expiry)
	assert.Equal(t, entity.CharsetDigits, p.Charset)

	_, err = r.Get(ctx, entity.PurposePhoneVerification)
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	reset, err := r.Get(ctx, entity.PurposePasswordReset)
	require.NoError(t, err)
	reset.MaxAttempts = 9
	require.NoError(t, r.Save(ctx, entity.PurposePasswordReset, reset))

	got, err := r.Get(ctx, entity.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, reset, got)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 9, all[entity.PurposePasswordReset].MaxAttempts)
}
