package usecase

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRetryMax       = 3
	defaultRetryBase      = 200 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
	defaultProductName    = "otpgate"
	defaultIdempotencyTTL = 24 * time.Hour
)

type repoMail interface {
	SendMail(ctx context.Context, msg mail.Message) error
}

type repoSMS interface {
	SendSMS(ctx context.Context, msg sms.Message) error
}

type Usecase struct {
	repoMail    repoMail
	repoSMS     repoSMS
	idempotency idempotency.Tracker
	validator   validator.Validator
	cfg         config.Config
	clock       clock.Clocker
	ins         instrument.Instrumentation
	templates   map[entity.TemplateKey]entity.Template
}

type Dependency struct {
	RepoMail    repoMail
	RepoSMS     repoSMS
	Idempotency idempotency.Tracker
	Validator   validator.Validator
	Config      config.Config
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	return &Usecase{
		repoMail:    dep.RepoMail,
		repoSMS:     dep.RepoSMS,
		idempotency: dep.Idempotency,
		validator:   dep.Validator,
		cfg:         dep.Config,
		clock:       dep.Clock,
		ins:         dep.Instrument,
		templates:   loadTemplates(dep.Config),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) productName() string {
	if name := s.cfg.GetString("modules.notification.product_name"); name != "" {
		return name
	}
	return defaultProductName
}

// backoff reads modules.notification.retry.{max_retries,base_delay_ms,max_delay_ms}.
func (s *Usecase) backoff() retry.Backoff {
	maxRetries := defaultRetryMax
	if s.cfg.IsSet("modules.notification.retry.max_retries") {
		maxRetries = max(s.cfg.GetInt("modules.notification.retry.max_retries"), 0)
	}

	base := defaultRetryBase
	if v := s.cfg.GetInt("modules.notification.retry.base_delay_ms"); v > 0 {
		base = time.Duration(v) * time.Millisecond
	}

	maxDelay := defaultRetryMaxDelay
	if v := s.cfg.GetInt("modules.notification.retry.max_delay_ms"); v > 0 {
		maxDelay = time.Duration(v) * time.Millisecond
	}

	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(maxDelay, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}
