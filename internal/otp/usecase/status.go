package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mask"
)

type StatusOutput struct {
	Exists            bool
	IsValid           bool
	IsUsed            bool
	AttemptsRemaining int
	ExpiresAt         time.Time
	Purpose           entity.Purpose
}

// Status is read-only; it never consumes an attempt or deletes a record.
func (s *Usecase) Status(ctx context.Context, recordID string) (StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	if recordID == "" {
		return StatusOutput{}, goerror.NewInvalidInput(nil, "record_id", "record_id is a required field")
	}

	rec, err := s.repoStore.Get(ctx, recordID)
	if errors.Is(err, goerror.ErrNotFound) {
		return StatusOutput{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get otp record", "record_id", recordID, "error", err)
		return StatusOutput{}, goerror.NewServer(err)
	}

	return StatusOutput{
		Exists:            true,
		IsValid:           rec.IsActive(s.clock.Now()) && rec.Attempts < rec.MaxAttempts,
		IsUsed:            rec.Used,
		AttemptsRemaining: rec.AttemptsRemaining(),
		ExpiresAt:         rec.ExpiresAt,
		Purpose:           rec.Purpose,
	}, nil
}

type InvalidateInput struct {
	RecordID   string `validate:"required_without=Identifier,max=64"`
	Identifier string `validate:"required_without=RecordID,max=254"`
	Purpose    entity.Purpose
}

// Invalidate deletes a record by ID, or the records of (identifier, purpose).
// Removing something that does not exist is not an error.
func (s *Usecase) Invalidate(ctx context.Context, in InvalidateInput) (int, error) {
	ctx, span := s.startSpan(ctx, "Invalidate")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return 0, goerror.NewInvalidInput(err)
	}

	if in.RecordID != "" {
		if err := s.repoStore.Delete(ctx, in.RecordID); err != nil {
			slog.ErrorContext(ctx, "failed to repo delete otp record", "record_id", in.RecordID, "error", err)
			return 0, goerror.NewServer(err)
		}
		return 1, nil
	}

	if !in.Purpose.IsValid() {
		return 0, goerror.NewInvalidInput(nil, "purpose", "purpose is not recognized")
	}

	n, err := s.repoStore.InvalidatePair(ctx, in.Identifier, in.Purpose)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo invalidate otp pair", "identifier", mask.Identifier(in.Identifier), "purpose", in.Purpose.String(), "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}
