package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PurposePolicy struct {
	Purpose entity.Purpose
	Policy  entity.Policy
}

func (s *Usecase) GetConfig(ctx context.Context, purpose entity.Purpose) (entity.Policy, error) {
	ctx, span := s.startSpan(ctx, "GetConfig")
	defer span.End()

	if !purpose.IsValid() {
		return entity.Policy{}, goerror.NewInvalidInput(nil, "purpose", "purpose is not recognized")
	}

	p, err := s.repoPolicy.Get(ctx, purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.Policy{}, goerror.NewBusiness("otp purpose is not configured", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get otp policy", "purpose", purpose.String(), "error", err)
		return entity.Policy{}, goerror.NewServer(err)
	}

	return p, nil
}

// SetConfig merges patch into the purpose's policy. Live records keep the
// attempt budget they were created with.
func (s *Usecase) SetConfig(ctx context.Context, purpose entity.Purpose, patch entity.PolicyPatch) (entity.Policy, error) {
	ctx, span := s.startSpan(ctx, "SetConfig")
	defer span.End()

	if !purpose.IsValid() {
		return entity.Policy{}, goerror.NewInvalidInput(nil, "purpose", "purpose is not recognized")
	}
	if patch.IsEmpty() {
		return entity.Policy{}, goerror.NewInvalidFormat("at least one policy field is required")
	}

	s.policyMu.Lock()
	defer s.policyMu.Unlock()

	current, err := s.repoPolicy.Get(ctx, purpose)
	switch {
	case errors.Is(err, goerror.ErrNotFound):
		if !s.cfg.GetBool("modules.otp.policy.allow_create") {
			return entity.Policy{}, goerror.NewBusiness("otp purpose is not configured", goerror.CodeNotFound)
		}
		current = entity.Policy{}
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo get otp policy", "purpose", purpose.String(), "error", err)
		return entity.Policy{}, goerror.NewServer(err)
	}

	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return entity.Policy{}, goerror.NewInvalidInput(nil, "policy", err.Error())
	}

	if err := s.repoPolicy.Save(ctx, purpose, next); err != nil {
		slog.ErrorContext(ctx, "failed to repo save otp policy", "purpose", purpose.String(), "error", err)
		return entity.Policy{}, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "otp policy updated", "purpose", purpose.String(),
		"code_length", next.CodeLength, "expiry", next.Expiry.String(), "max_attempts", next.MaxAttempts,
		"resend_cooldown", next.ResendCooldown.String(), "charset", next.Charset.String())

	return next, nil
}

// ListConfig returns configured purposes in declaration order.
func (s *Usecase) ListConfig(ctx context.Context) ([]PurposePolicy, error) {
	ctx, span := s.startSpan(ctx, "ListConfig")
	defer span.End()

	all, err := s.repoPolicy.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list otp policies", "error", err)
		return nil, goerror.NewServer(err)
	}

	out := lo.MapToSlice(all, func(p entity.Purpose, pol entity.Policy) PurposePolicy {
		return PurposePolicy{Purpose: p, Policy: pol}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })

	return out, nil
}
