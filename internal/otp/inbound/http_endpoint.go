package inbound

import (
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// Generate issues a code and hands it to the delivery channel.
// @Summary Generate OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generate payload"
// @Success 201 {object} router.successResponse{data=GenerateResponse} "Code issued"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.successResponse{data=GenerateResponse} "Resend cooldown active"
// @Failure 503 {object} router.successResponse{data=GenerateResponse} "Delivery failed"
// @Router /api/v1/otp/generate [post]
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Generate(r.Context(), usecase.GenerateInput{
		Identifier:  req.Identifier,
		Channel:     entity.ParseChannel(req.Channel),
		Purpose:     entity.ParsePurpose(req.Purpose),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	return newGenerateResponse(out), nil
}

// Verify checks a code against its record.
// @Summary Verify OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Code verified"
// @Failure 400 {object} router.successResponse{data=VerifyResponse} "Invalid code"
// @Failure 404 {object} router.successResponse{data=VerifyResponse} "Invalid or expired"
// @Failure 409 {object} router.successResponse{data=VerifyResponse} "Already used"
// @Failure 410 {object} router.successResponse{data=VerifyResponse} "Expired"
// @Failure 429 {object} router.successResponse{data=VerifyResponse} "Attempts exhausted"
// @Router /api/v1/otp/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		RecordID:   req.RecordID,
		Code:       req.Code,
		Identifier: req.Identifier,
	})
	if err != nil {
		return nil, err
	}

	return newVerifyResponse(out), nil
}

func (h *HTTPEndpoint) VerifyByIdentifier(r *router.Request) (any, error) {
	var req VerifyByIdentifierRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.VerifyByIdentifier(r.Context(), usecase.VerifyByIdentifierInput{
		Identifier: req.Identifier,
		Purpose:    entity.ParsePurpose(req.Purpose),
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return newVerifyResponse(out), nil
}

func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	id := r.GetParam("id")

	out, err := h.uc.Status(r.Context(), id)
	if err != nil {
		return nil, err
	}

	resp := StatusResponse{RecordID: id, Exists: out.Exists}
	if out.Exists {
		resp.IsValid = out.IsValid
		resp.IsUsed = out.IsUsed
		resp.AttemptsRemaining = out.AttemptsRemaining
		resp.ExpiresAt = &out.ExpiresAt
		resp.Purpose = out.Purpose.String()
	}

	return resp, nil
}

func (h *HTTPEndpoint) DeleteRecord(r *router.Request) (any, error) {
	n, err := h.uc.Invalidate(r.Context(), usecase.InvalidateInput{RecordID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return InvalidateResponse{Deleted: n}, nil
}

func (h *HTTPEndpoint) Invalidate(r *router.Request) (any, error) {
	var req InvalidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	n, err := h.uc.Invalidate(r.Context(), usecase.InvalidateInput{
		RecordID:   req.RecordID,
		Identifier: req.Identifier,
		Purpose:    entity.ParsePurpose(req.Purpose),
	})
	if err != nil {
		return nil, err
	}

	return InvalidateResponse{Deleted: n}, nil
}

// ListConfig returns every configured purpose policy.
// @Summary List OTP policies
// @Tags OTP Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=PolicyListResponse} "Policies"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Router /api/v1/otp/configs [get]
func (h *HTTPEndpoint) ListConfig(r *router.Request) (any, error) {
	items, err := h.uc.ListConfig(r.Context())
	if err != nil {
		return nil, err
	}

	return PolicyListResponse{
		Policies: lo.Map(items, func(it usecase.PurposePolicy, _ int) PolicyResponse {
			return newPolicyResponse(it.Purpose, it.Policy)
		}),
	}, nil
}

func (h *HTTPEndpoint) GetConfig(r *router.Request) (any, error) {
	purpose := entity.ParsePurpose(r.GetParam("purpose"))

	p, err := h.uc.GetConfig(r.Context(), purpose)
	if err != nil {
		return nil, err
	}

	return newPolicyResponse(purpose, p), nil
}

// SetConfig merges the given fields into the purpose policy.
// @Summary Update OTP policy
// @Tags OTP Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param purpose path string true "Purpose, e.g. password_reset"
// @Param request body PolicyPatchRequest true "Fields to change"
// @Success 200 {object} router.successResponse{data=PolicyResponse} "Updated policy"
// @Failure 404 {object} router.errorResponse "Purpose not configured"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/otp/configs/{purpose} [patch]
func (h *HTTPEndpoint) SetConfig(r *router.Request) (any, error) {
	purpose := entity.ParsePurpose(r.GetParam("purpose"))

	var req PolicyPatchRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	patch := entity.PolicyPatch{
		CodeLength:  req.CodeLength,
		MaxAttempts: req.MaxAttempts,
	}
	if req.ExpirySeconds != nil {
		patch.Expiry = lo.ToPtr(time.Duration(*req.ExpirySeconds) * time.Second)
	}
	if req.ResendCooldownSeconds != nil {
		patch.ResendCooldown = lo.ToPtr(time.Duration(*req.ResendCooldownSeconds) * time.Second)
	}
	if req.Charset != nil {
		cs := entity.ParseCharset(*req.Charset)
		if !cs.IsValid() {
			return nil, goerror.NewInvalidInput(nil, "charset", "charset must be DIGITS or ALPHANUMERIC")
		}
		patch.Charset = &cs
	}

	p, err := h.uc.SetConfig(r.Context(), purpose, patch)
	if err != nil {
		return nil, err
	}

	return newPolicyResponse(purpose, p), nil
}

func (h *HTTPEndpoint) Statistics(r *router.Request) (any, error) {
	stats, err := h.uc.Statistics(r.Context())
	if err != nil {
		return nil, err
	}

	return newStatisticsResponse(stats), nil
}
