package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mask"
)

type VerifyInput struct {
	RecordID   string `validate:"required,max=64"`
	Code       string `validate:"required,otpcode"`
	Identifier string `validate:"max=254"`
}

type VerifyByIdentifierInput struct {
	Identifier string `validate:"required,max=254"`
	Purpose    entity.Purpose
	Code       string `validate:"required,otpcode"`
}

type VerifyOutput struct {
	Success           bool
	Outcome           entity.VerifyOutcome
	Message           string
	Purpose           entity.Purpose
	AttemptsRemaining *int
}

func verifyResult(o entity.VerifyOutcome) VerifyOutput {
	return VerifyOutput{Success: o == entity.VerifySuccess, Outcome: o, Message: o.Message()}
}

// Verify checks a candidate code against the record. Every expected user
// error is an Outcome; the error is for bad input and store failures.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return VerifyOutput{}, goerror.NewInvalidInput(err)
	}

	out, err := s.verify(ctx, in.RecordID, in.Identifier, in.Code)
	if err != nil {
		return VerifyOutput{}, err
	}

	s.count(ctx, s.verifyCounter, 1, "outcome", out.Outcome.String())
	return out, nil
}

// VerifyByIdentifier verifies against the single active record of (identifier, purpose).
func (s *Usecase) VerifyByIdentifier(ctx context.Context, in VerifyByIdentifierInput) (VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyByIdentifier")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return VerifyOutput{}, goerror.NewInvalidInput(err)
	}
	if !in.Purpose.IsValid() {
		return VerifyOutput{}, goerror.NewInvalidInput(nil, "purpose", "purpose is not recognized")
	}

	rec, err := s.repoStore.FindActive(ctx, in.Identifier, in.Purpose, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) {
		out := verifyResult(entity.VerifyInvalidOrExpired)
		s.count(ctx, s.verifyCounter, 1, "outcome", out.Outcome.String())
		return out, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find active otp", "identifier", mask.Identifier(in.Identifier), "purpose", in.Purpose.String(), "error", err)
		return VerifyOutput{}, goerror.NewServer(err)
	}

	out, err := s.verify(ctx, rec.ID, in.Identifier, in.Code)
	if err != nil {
		return VerifyOutput{}, err
	}

	s.count(ctx, s.verifyCounter, 1, "outcome", out.Outcome.String())
	return out, nil
}

func (s *Usecase) verify(ctx context.Context, recordID, identifier, code string) (VerifyOutput, error) {
	now := s.clock.Now()

	res, err := s.repoStore.Attempt(ctx, recordID, identifier, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo attempt otp", "record_id", recordID, "error", err)
		return VerifyOutput{}, goerror.NewServer(err)
	}

	switch res.Status {
	case entity.AttemptNotFound:
		return verifyResult(entity.VerifyInvalidOrExpired), nil
	case entity.AttemptUsed:
		return verifyResult(entity.VerifyAlreadyUsed), nil
	case entity.AttemptExpired:
		return verifyResult(entity.VerifyExpired), nil
	case entity.AttemptIdentifierMismatch:
		slog.WarnContext(ctx, "otp verify identifier mismatch", "record_id", recordID, "identifier", mask.Identifier(identifier))
		return verifyResult(entity.VerifyInvalidRequest), nil
	case entity.AttemptExhausted:
		slog.WarnContext(ctx, "otp attempts exhausted", "record_id", recordID)
		return verifyResult(entity.VerifyAttemptsExhausted), nil
	}

	rec := res.Record

	if !s.hmac.Verify(rec.Code, strings.ToUpper(code)) {
		out := verifyResult(entity.VerifyInvalidCode)
		out.Purpose = rec.Purpose
		remaining := rec.AttemptsRemaining()
		out.AttemptsRemaining = &remaining
		return out, nil
	}

	ok, err := s.repoStore.MarkUsed(ctx, rec.ID, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark otp used", "record_id", rec.ID, "error", err)
		return VerifyOutput{}, goerror.NewServer(err)
	}
	if !ok {
		return verifyResult(entity.VerifyAlreadyUsed), nil
	}

	out := verifyResult(entity.VerifySuccess)
	out.Purpose = rec.Purpose
	return out, nil
}
