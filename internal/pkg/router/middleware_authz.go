package router

import (
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

func middlewareAuthorization(enforcer *casbin.Enforcer, object, action string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := jwt.GetAuth(r.Context())
			if claims == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			if enforcer == nil {
				writeJSON(w, errorResponse{Message: "Access denied"}, http.StatusForbidden)
				return
			}

			allowed, err := enforcer.Enforce(claims.Email, object, action)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to enforce policy", "object", object, "action", action, "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !allowed {
				writeJSON(w, errorResponse{Message: "Access denied"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
