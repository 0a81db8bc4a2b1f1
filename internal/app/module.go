package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/notification"
	"github.com/shandysiswandi/otpgate/internal/otp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otp.enabled") {
		dep := otp.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Storage:    a.storage,
			Messaging:  a.messaging,
			Goroutine:  a.goroutine,
			Router:     a.router,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			HMAC:       a.hmac,
			Clock:      a.clock,
			Validator:  a.validator,
		}
		if a.cacheConn != nil {
			dep.CacheConn = a.cacheConn
		}

		if err := otp.New(dep); err != nil {
			slog.Error("failed to init module otp", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:         a.ctx,
			Messaging:   a.messaging,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Mail:        a.mail,
			SMS:         a.sms,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
