package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/otp/inbound"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/policy"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/store"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

var (
	ErrUnknownStore        = errors.New("otp: unknown store driver")
	ErrUnknownPolicySource = errors.New("otp: unknown policy source")
)

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	Storage    storage.Storage
	Messaging  messaging.Messaging        `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ctx := dep.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ucDep := usecase.Dependency{
		RepoDelivery: mq.NewMessaging(dep.Messaging, dep.UID, dep.Instrument),
		Validator:    dep.Validator,
		Config:       dep.Config,
		HMAC:         dep.HMAC,
		UUID:         dep.UUID,
		Clock:        dep.Clock,
		Instrument:   dep.Instrument,
	}
	if err := setStore(dep, &ucDep); err != nil {
		return err
	}
	if err := setPolicy(ctx, dep, &ucDep); err != nil {
		return err
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	if dep.Ctx != nil && !dep.Config.GetBool("modules.otp.janitor.disabled") {
		janitor := inbound.NewJanitor(uc, dep.Config.GetSecond("modules.otp.janitor.interval_seconds"))
		if !dep.Goroutine.Go(dep.Ctx, "otp-janitor", janitor.Run) {
			slog.Warn("otp janitor was not started")
		}
	}

	return nil
}

func setStore(dep Dependency, ucDep *usecase.Dependency) error {
	switch driver := strings.ToLower(dep.Config.GetString("modules.otp.store")); driver {
	case "", "memory":
		ucDep.RepoStore = store.NewMemory(dep.Instrument)
	case "redis":
		if dep.CacheConn == nil {
			return fmt.Errorf("%w: redis store requires a redis connection", ErrUnknownStore)
		}
		ucDep.RepoStore = store.NewRedis(dep.CacheConn, dep.Instrument, store.RedisOptions{
			Prefix:    dep.Config.GetString("modules.otp.redis.prefix"),
			Retention: dep.Config.GetSecond("modules.otp.redis.retention_seconds"),
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, driver)
	}

	return nil
}

func setPolicy(ctx context.Context, dep Dependency, ucDep *usecase.Dependency) error {
	seed := policy.FromConfig(dep.Config)
	if len(seed) == 0 {
		slog.Warn("no otp policy configured, every generate will report a config error")
	}

	switch source := strings.ToLower(dep.Config.GetString("modules.otp.policy.source")); source {
	case "", "config":
		ucDep.RepoPolicy = policy.NewMemory(dep.Instrument, seed)
	case "postgres":
		if dep.DBConn == nil {
			return fmt.Errorf("%w: postgres source requires a database connection", ErrUnknownPolicySource)
		}
		repo := policy.NewPostgres(dep.DBConn, dep.Instrument)
		if err := repo.Seed(ctx, seed); err != nil {
			return err
		}
		ucDep.RepoPolicy = repo
	case "storage":
		if dep.Storage == nil {
			return fmt.Errorf("%w: storage source requires an object storage", ErrUnknownPolicySource)
		}
		ucDep.RepoPolicy = policy.NewObject(
			dep.Storage,
			dep.Config.GetString("modules.otp.policy.bucket"),
			dep.Config.GetString("modules.otp.policy.key"),
			seed,
			dep.Instrument,
		)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicySource, source)
	}

	return nil
}
