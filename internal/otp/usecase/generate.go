package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mask"
)

type GenerateInput struct {
	Identifier  string `validate:"required,max=254"`
	Channel     entity.Channel
	Purpose     entity.Purpose
	DisplayName string `validate:"max=100"`
}

type GenerateOutput struct {
	Status        entity.GenerateStatus
	RecordID      string
	ExpiresAt     time.Time
	CooldownUntil time.Time
	RetryAfter    time.Duration
	Message       string
}

type emailIdentifier struct {
	Identifier string `validate:"email"`
}

type phoneIdentifier struct {
	Identifier string `validate:"phone"`
}

func (s *Usecase) validateGenerate(in GenerateInput) error {
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}
	if !in.Channel.IsValid() {
		return goerror.NewInvalidInput(nil, "channel", "channel must be one of EMAIL SMS")
	}
	if !in.Purpose.IsValid() {
		return goerror.NewInvalidInput(nil, "purpose", "purpose is not recognized")
	}

	var target any = phoneIdentifier{Identifier: in.Identifier}
	if in.Channel == entity.ChannelEmail {
		target = emailIdentifier{Identifier: in.Identifier}
	}
	if err := s.validator.Validate(target); err != nil {
		return goerror.NewInvalidInput(err)
	}

	return nil
}

// Generate issues a new code for (identifier, purpose) and hands it to the
// delivery channel. Throttling, a missing policy and delivery failure are
// reported through Status; the error is reserved for bad input and hard failures.
func (s *Usecase) Generate(ctx context.Context, in GenerateInput) (out GenerateOutput, err error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()
	defer func() {
		if err == nil {
			s.count(ctx, s.generateCounter, 1, "status", out.Status.String())
		}
	}()

	if err := s.validateGenerate(in); err != nil {
		return GenerateOutput{}, err
	}

	masked := mask.Identifier(in.Identifier)
	now := s.clock.Now()

	cd, err := s.repoStore.Cooldown(ctx, in.Identifier, in.Purpose)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get otp cooldown", "identifier", masked, "purpose", in.Purpose.String(), "error", err)
		return GenerateOutput{}, goerror.NewServer(err)
	}
	if err == nil && cd.IsActive(now) {
		return throttled(now, cd.Until), nil
	}

	policy, err := s.repoPolicy.Get(ctx, in.Purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "otp purpose has no policy configured", "purpose", in.Purpose.String())
		if _, ierr := s.repoStore.InvalidatePair(ctx, in.Identifier, in.Purpose); ierr != nil {
			slog.ErrorContext(ctx, "failed to repo invalidate otp pair", "identifier", masked, "error", ierr)
		}
		return GenerateOutput{
			Status:  entity.GenerateConfigError,
			Message: "Verification is not available for this purpose",
		}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get otp policy", "purpose", in.Purpose.String(), "error", err)
		return GenerateOutput{}, goerror.NewServer(err)
	}

	code, err := s.generateCode(policy.Charset, policy.CodeLength)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "purpose", in.Purpose.String(), "error", err)
		return GenerateOutput{}, goerror.NewServer(err)
	}

	digest, err := s.hmac.Hash(strings.ToUpper(code))
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return GenerateOutput{}, goerror.NewServer(err)
	}

	rec := entity.Record{
		ID:          s.uuid.Generate(),
		Identifier:  in.Identifier,
		Code:        string(digest),
		Channel:     in.Channel,
		Purpose:     in.Purpose,
		MaxAttempts: policy.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(policy.Expiry),
	}
	cooldownUntil := now.Add(policy.ResendCooldown)

	res, err := s.repoStore.Issue(ctx, rec, cooldownUntil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo issue otp record", "identifier", masked, "purpose", in.Purpose.String(), "error", err)
		return GenerateOutput{}, goerror.NewServer(err)
	}
	if res.Throttled {
		return throttled(now, res.CooldownUntil), nil
	}
	if res.Replaced != "" {
		slog.InfoContext(ctx, "otp record replaced", "record_id", res.Replaced, "purpose", in.Purpose.String())
	}

	if err := s.repoDelivery.DispatchOTP(ctx, DispatchInput{
		RecordID:    rec.ID,
		Identifier:  in.Identifier,
		Channel:     in.Channel,
		Purpose:     in.Purpose,
		Code:        code,
		Expiry:      policy.Expiry,
		DisplayName: in.DisplayName,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch otp", "record_id", rec.ID, "identifier", masked, "channel", in.Channel.String(), "error", err)

		if delErr := s.repoStore.Delete(ctx, rec.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to repo delete undelivered otp record", "record_id", rec.ID, "error", delErr)
		}

		return GenerateOutput{
			Status:        entity.GenerateDeliveryFailed,
			CooldownUntil: cooldownUntil,
			Message:       "Failed to send verification code, please try again later",
		}, nil
	}

	return GenerateOutput{
		Status:        entity.GenerateIssued,
		RecordID:      rec.ID,
		ExpiresAt:     rec.ExpiresAt,
		CooldownUntil: cooldownUntil,
		Message:       "Verification code sent to " + masked,
	}, nil
}

func throttled(now, until time.Time) GenerateOutput {
	wait := until.Sub(now)
	secs := int64(math.Ceil(wait.Seconds()))

	return GenerateOutput{
		Status:        entity.GenerateThrottled,
		CooldownUntil: until,
		RetryAfter:    time.Duration(secs) * time.Second,
		Message:       fmt.Sprintf("Please wait %d seconds before requesting a new code", secs),
	}
}
