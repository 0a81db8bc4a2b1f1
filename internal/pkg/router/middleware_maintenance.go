package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

// middlewareMaintenance answers 503 for route patterns listed in
// app.maintenance.endpoints. "*" blocks every route except the public
// health check. The list is read per request so a config reload applies
// without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if len(blocked) > 0 {
				route := matchedRoutePath(r)
				if slices.Contains(blocked, route) || (route != "/health" && slices.Contains(blocked, "*")) {
					w.Header().Set("Retry-After", "60")
					writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
