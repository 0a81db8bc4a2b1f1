package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`

	code int
}

func (h healthResponse) StatusCode() int { return h.code }
func (h healthResponse) Message() string { return "service is " + h.Status }

func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	resp := healthResponse{Status: "up", Checks: map[string]string{}, code: http.StatusOK}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			resp.code = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "up"
	}

	if a.dbConn != nil {
		check("postgres", a.dbConn.Ping)
	}
	if a.cacheConn != nil {
		check("redis", func(ctx context.Context) error { return a.cacheConn.Ping(ctx).Err() })
	}

	return resp, nil
}
