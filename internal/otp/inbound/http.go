package inbound

import (
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

const (
	objectConfig     = "otp.config"
	objectStatistics = "otp.statistics"
	actionRead       = "read"
	actionWrite      = "write"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.Public(http.MethodPost, "/api/v1/otp/generate")
	r.Public(http.MethodPost, "/api/v1/otp/verify")
	r.Public(http.MethodPost, "/api/v1/otp/verify-by-identifier")
	r.Public(http.MethodGet, "/api/v1/otp/records/:id")
	r.Public(http.MethodDelete, "/api/v1/otp/records/:id")
	r.Public(http.MethodPost, "/api/v1/otp/invalidate")

	r.POST("/api/v1/otp/generate", end.Generate)
	r.POST("/api/v1/otp/verify", end.Verify)
	r.POST("/api/v1/otp/verify-by-identifier", end.VerifyByIdentifier)
	r.GET("/api/v1/otp/records/:id", end.Status)
	r.DELETE("/api/v1/otp/records/:id", end.DeleteRecord)
	r.POST("/api/v1/otp/invalidate", end.Invalidate)

	r.GET("/api/v1/otp/configs", end.ListConfig, r.Authorize(objectConfig, actionRead))
	r.GET("/api/v1/otp/configs/:purpose", end.GetConfig, r.Authorize(objectConfig, actionRead))
	r.PATCH("/api/v1/otp/configs/:purpose", end.SetConfig, r.Authorize(objectConfig, actionWrite))
	r.GET("/api/v1/otp/statistics", end.Statistics, r.Authorize(objectStatistics, actionRead))
}
