package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
)

type GenerateRequest struct {
	Identifier  string `json:"identifier"`
	Channel     string `json:"channel"`
	Purpose     string `json:"purpose"`
	DisplayName string `json:"display_name"`
}

type GenerateResponse struct {
	Status            string     `json:"status"`
	RecordID          string     `json:"record_id,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	RetryAfterSeconds int64      `json:"retry_after_seconds,omitempty"`

	msg  string
	code int
}

func (g GenerateResponse) Message() string { return g.msg }
func (g GenerateResponse) StatusCode() int { return g.code }

func (g GenerateResponse) Headers() map[string]string {
	if g.RetryAfterSeconds <= 0 {
		return nil
	}
	return map[string]string{"Retry-After": strconv.FormatInt(g.RetryAfterSeconds, 10)}
}

func newGenerateResponse(out usecase.GenerateOutput) GenerateResponse {
	resp := GenerateResponse{Status: out.Status.String(), msg: out.Message}

	switch out.Status {
	case entity.GenerateIssued:
		resp.code = http.StatusCreated
		resp.RecordID = out.RecordID
		resp.ExpiresAt = &out.ExpiresAt
		resp.CooldownUntil = &out.CooldownUntil
	case entity.GenerateThrottled:
		resp.code = http.StatusTooManyRequests
		resp.CooldownUntil = &out.CooldownUntil
		resp.RetryAfterSeconds = int64(out.RetryAfter / time.Second)
	case entity.GenerateDeliveryFailed:
		resp.code = http.StatusServiceUnavailable
	default:
		resp.code = http.StatusInternalServerError
	}

	return resp
}

type VerifyRequest struct {
	RecordID   string `json:"record_id"`
	Code       string `json:"code"`
	Identifier string `json:"identifier"`
}

type VerifyByIdentifierRequest struct {
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
	Code       string `json:"code"`
}

type VerifyResponse struct {
	Success           bool   `json:"success"`
	Outcome           string `json:"outcome"`
	Purpose           string `json:"purpose,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`

	msg  string
	code int
}

func (v VerifyResponse) Message() string { return v.msg }
func (v VerifyResponse) StatusCode() int { return v.code }

func newVerifyResponse(out usecase.VerifyOutput) VerifyResponse {
	resp := VerifyResponse{
		Success:           out.Success,
		Outcome:           out.Outcome.String(),
		AttemptsRemaining: out.AttemptsRemaining,
		msg:               out.Message,
	}
	if out.Purpose.IsValid() {
		resp.Purpose = out.Purpose.String()
	}

	switch out.Outcome {
	case entity.VerifySuccess:
		resp.code = http.StatusOK
	case entity.VerifyInvalidCode, entity.VerifyInvalidRequest:
		resp.code = http.StatusBadRequest
	case entity.VerifyInvalidOrExpired:
		resp.code = http.StatusNotFound
	case entity.VerifyAlreadyUsed:
		resp.code = http.StatusConflict
	case entity.VerifyExpired:
		resp.code = http.StatusGone
	case entity.VerifyAttemptsExhausted:
		resp.code = http.StatusTooManyRequests
	default:
		resp.code = http.StatusBadRequest
	}

	return resp
}

type StatusResponse struct {
	RecordID          string     `json:"record_id"`
	Exists            bool       `json:"exists"`
	IsValid           bool       `json:"is_valid"`
	IsUsed            bool       `json:"is_used"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Purpose           string     `json:"purpose,omitempty"`
}

type InvalidateRequest struct {
	RecordID   string `json:"record_id"`
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
}

type InvalidateResponse struct {
	Deleted int `json:"deleted"`
}

func (InvalidateResponse) Message() string { return "otp invalidated" }

type PolicyResponse struct {
	Purpose               string `json:"purpose"`
	CodeLength            int    `json:"code_length"`
	ExpirySeconds         int64  `json:"expiry_seconds"`
	MaxAttempts           int    `json:"max_attempts"`
	ResendCooldownSeconds int64  `json:"resend_cooldown_seconds"`
	Charset               string `json:"charset"`
}

func newPolicyResponse(purpose entity.Purpose, p entity.Policy) PolicyResponse {
	return PolicyResponse{
		Purpose:               purpose.String(),
		CodeLength:            p.CodeLength,
		ExpirySeconds:         int64(p.Expiry / time.Second),
		MaxAttempts:           p.MaxAttempts,
		ResendCooldownSeconds: int64(p.ResendCooldown / time.Second),
		Charset:               p.Charset.String(),
	}
}

type PolicyListResponse struct {
	Policies []PolicyResponse `json:"policies"`
}

type PolicyPatchRequest struct {
	CodeLength            *int    `json:"code_length"`
	ExpirySeconds         *int64  `json:"expiry_seconds"`
	MaxAttempts           *int    `json:"max_attempts"`
	ResendCooldownSeconds *int64  `json:"resend_cooldown_seconds"`
	Charset               *string `json:"charset"`
}

type StatisticsResponse struct {
	Active             int                      `json:"active"`
	Used               int                      `json:"used"`
	Expired            int                      `json:"expired"`
	Cooldowns          int                      `json:"cooldowns"`
	ByPurpose          map[string]entity.Counts `json:"by_purpose"`
	ByChannel          map[string]entity.Counts `json:"by_channel"`
	CooldownsByPurpose map[string]int           `json:"cooldowns_by_purpose"`
}

func newStatisticsResponse(s entity.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Active:             s.Active,
		Used:               s.Used,
		Expired:            s.Expired,
		Cooldowns:          s.Cooldowns,
		ByPurpose:          s.ByPurpose,
		ByChannel:          s.ByChannel,
		CooldownsByPurpose: s.CooldownsByPurpose,
	}
}
