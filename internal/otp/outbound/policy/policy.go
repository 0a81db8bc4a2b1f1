// Package policy persists the per-purpose OTP policy table.
package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FromConfig reads modules.otp.policies.<purpose>.* for every known purpose.
// Purposes without a code_length key are treated as unconfigured; entries
// that fail validation are logged and left out.
func FromConfig(cfg config.Config) map[entity.Purpose]entity.Policy {
	out := make(map[entity.Purpose]entity.Policy, len(entity.Purposes))

	for _, p := range entity.Purposes {
		prefix := "modules.otp.policies." + p.Key() + "."
		if !cfg.IsSet(prefix + "code_length") {
			continue
		}

		pol := entity.Policy{
			CodeLength:     cfg.GetInt(prefix + "code_length"),
			Expiry:         cfg.GetSecond(prefix + "expiry_seconds"),
			MaxAttempts:    cfg.GetInt(prefix + "max_attempts"),
			ResendCooldown: cfg.GetSecond(prefix + "resend_cooldown_seconds"),
			Charset:        entity.ParseCharset(cfg.GetString(prefix + "charset")),
		}
		if err := pol.Validate(); err != nil {
			slog.Error("skipping invalid otp policy from config", "purpose", p.String(), "error", err)
			continue
		}

		out[p] = pol
	}

	return out
}

type tracing struct {
	ins instrument.Instrumentation
}

func (t tracing) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.ins.Tracer("otp.outbound.policy").Start(ctx, name)
}

func (tracing) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
