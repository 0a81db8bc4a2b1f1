package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DispatchInput is what the delivery channel needs to render and send a code.
type DispatchInput struct {
	RecordID    string
	Identifier  string
	Channel     entity.Channel
	Purpose     entity.Purpose
	Code        string
	Expiry      time.Duration
	DisplayName string
}

type repoDelivery interface {
	DispatchOTP(ctx context.Context, in DispatchInput) error
}

// repoStore owns records and cooldowns. Lookups of missing entries return
// goerror.ErrNotFound; deletes of missing entries are no-ops.
type repoStore interface {
	Cooldown(ctx context.Context, identifier string, purpose entity.Purpose) (entity.Cooldown, error)
	// Issue atomically re-checks the cooldown, removes the prior active record
	// of the pair, inserts rec and sets the cooldown to cooldownUntil.
	Issue(ctx context.Context, rec entity.Record, cooldownUntil time.Time) (entity.IssueResult, error)
	Get(ctx context.Context, id string) (entity.Record, error)
	FindActive(ctx context.Context, identifier string, purpose entity.Purpose, now time.Time) (entity.Record, error)
	// Attempt atomically applies the existence, usage, expiry, identifier
	// and budget checks, consuming one attempt when they pass.
	Attempt(ctx context.Context, id, identifier string, now time.Time) (entity.AttemptResult, error)
	// MarkUsed flips an unused record to used; false means it was gone or already used.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	InvalidatePair(ctx context.Context, identifier string, purpose entity.Purpose) (int, error)
	Sweep(ctx context.Context, now time.Time) (entity.SweepResult, error)
	Scan(ctx context.Context) ([]entity.Record, []entity.Cooldown, error)
}

type repoPolicy interface {
	Get(ctx context.Context, purpose entity.Purpose) (entity.Policy, error)
	Save(ctx context.Context, purpose entity.Purpose, p entity.Policy) error
	List(ctx context.Context) (map[entity.Purpose]entity.Policy, error)
}

type Usecase struct {
	repoStore    repoStore
	repoPolicy   repoPolicy
	repoDelivery repoDelivery
	validator    validator.Validator
	cfg          config.Config
	hmac         hash.Hash
	uuid         uid.StringID
	clock        clock.Clocker
	ins          instrument.Instrumentation
	random       io.Reader

	policyMu sync.Mutex

	generateCounter metric.Int64Counter
	verifyCounter   metric.Int64Counter
	sweepCounter    metric.Int64Counter
}

type Dependency struct {
	RepoStore    repoStore
	RepoPolicy   repoPolicy
	RepoDelivery repoDelivery
	Validator    validator.Validator
	Config       config.Config
	HMAC         hash.Hash
	UUID         uid.StringID
	Clock        clock.Clocker
	Instrument   instrument.Instrumentation
	// Random overrides crypto/rand.Reader; tests only.
	Random io.Reader
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoStore:    dep.RepoStore,
		repoPolicy:   dep.RepoPolicy,
		repoDelivery: dep.RepoDelivery,
		validator:    dep.Validator,
		cfg:          dep.Config,
		hmac:         dep.HMAC,
		uuid:         dep.UUID,
		clock:        dep.Clock,
		ins:          dep.Instrument,
		random:       dep.Random,
	}

	meter := s.ins.Meter("otp.usecase")

	var err error
	if s.generateCounter, err = meter.Int64Counter("otp.generate.total", metric.WithDescription("OTP generate calls by status")); err != nil {
		slog.Error("failed to create otp generate counter", "error", err)
	}
	if s.verifyCounter, err = meter.Int64Counter("otp.verify.total", metric.WithDescription("OTP verify calls by outcome")); err != nil {
		slog.Error("failed to create otp verify counter", "error", err)
	}
	if s.sweepCounter, err = meter.Int64Counter("otp.janitor.swept", metric.WithDescription("Records and cooldowns removed by the janitor")); err != nil {
		slog.Error("failed to create otp sweep counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, n int64, key, value string) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attribute.String(key, value)))
}
