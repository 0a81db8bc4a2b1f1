package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
)

type uc interface {
	Generate(ctx context.Context, in usecase.GenerateInput) (usecase.GenerateOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (usecase.VerifyOutput, error)
	VerifyByIdentifier(ctx context.Context, in usecase.VerifyByIdentifierInput) (usecase.VerifyOutput, error)
	Status(ctx context.Context, recordID string) (usecase.StatusOutput, error)
	Invalidate(ctx context.Context, in usecase.InvalidateInput) (int, error)

	GetConfig(ctx context.Context, purpose entity.Purpose) (entity.Policy, error)
	SetConfig(ctx context.Context, purpose entity.Purpose, patch entity.PolicyPatch) (entity.Policy, error)
	ListConfig(ctx context.Context) ([]usecase.PurposePolicy, error)
	Statistics(ctx context.Context) (entity.Statistics, error)
}

type sweeper interface {
	Sweep(ctx context.Context) (entity.SweepResult, error)
}
