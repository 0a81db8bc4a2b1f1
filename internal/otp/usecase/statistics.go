package usecase

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// Statistics counts records and active cooldowns as of now. Records past
// expiry that the janitor has not swept yet count as expired.
func (s *Usecase) Statistics(ctx context.Context) (entity.Statistics, error) {
	ctx, span := s.startSpan(ctx, "Statistics")
	defer span.End()

	records, cooldowns, err := s.repoStore.Scan(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo scan otp store", "error", err)
		return entity.Statistics{}, goerror.NewServer(err)
	}

	now := s.clock.Now()
	classify := func(r entity.Record) entity.Counts {
		switch {
		case r.Used:
			return entity.Counts{Used: 1}
		case r.IsExpired(now):
			return entity.Counts{Expired: 1}
		default:
			return entity.Counts{Active: 1}
		}
	}
	sum := func(rs []entity.Record) entity.Counts {
		return lo.Reduce(rs, func(acc entity.Counts, r entity.Record, _ int) entity.Counts {
			c := classify(r)
			acc.Active += c.Active
			acc.Used += c.Used
			acc.Expired += c.Expired
			return acc
		}, entity.Counts{})
	}

	active := lo.Filter(cooldowns, func(c entity.Cooldown, _ int) bool { return c.IsActive(now) })

	return entity.Statistics{
		Counts:    sum(records),
		Cooldowns: len(active),
		ByPurpose: lo.MapValues(
			lo.GroupBy(records, func(r entity.Record) string { return r.Purpose.String() }),
			func(rs []entity.Record, _ string) entity.Counts { return sum(rs) },
		),
		ByChannel: lo.MapValues(
			lo.GroupBy(records, func(r entity.Record) string { return r.Channel.String() }),
			func(rs []entity.Record, _ string) entity.Counts { return sum(rs) },
		),
		CooldownsByPurpose: lo.CountValuesBy(active, func(c entity.Cooldown) string { return c.Purpose.String() }),
	}, nil
}

// Sweep removes used and expired records and lapsed cooldowns.
func (s *Usecase) Sweep(ctx context.Context) (entity.SweepResult, error) {
	ctx, span := s.startSpan(ctx, "Sweep")
	defer span.End()

	res, err := s.repoStore.Sweep(ctx, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo sweep otp store", "error", err)
		return entity.SweepResult{}, goerror.NewServer(err)
	}

	s.count(ctx, s.sweepCounter, int64(res.Records), "kind", "record")
	s.count(ctx, s.sweepCounter, int64(res.Cooldowns), "kind", "cooldown")

	return res, nil
}
