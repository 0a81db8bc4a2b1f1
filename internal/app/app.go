package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// App owns every process-wide resource and the HTTP server.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// dbConn and cacheConn stay nil when database.url or redis.url is empty
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Tracker
	mail      mail.Mail
	sms       sms.SMS
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	router     *router.Router
	httpServer *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds the application. Any step that fails logs and exits, so a
// returned App is fully wired.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func()
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"cache", a.initCache},
		{"mail", a.initMail},
		{"sms", a.initSMS},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"casbin", a.initCasbin},
		{"http", a.initHTTPServer},
		{"modules", a.initModules},
		{"closers", a.initClosers},
	}
	for _, step := range steps {
		step.fn()
		slog.Debug("initialized", "step", step.name)
	}

	return a
}
