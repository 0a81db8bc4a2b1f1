package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == instrument.HeaderCorrelationID {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// OTPDispatchNotification never logs the raw body; it carries the plaintext code.
func (h *MQHandler) OTPDispatchNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDispatchNotification")
	defer span.End()

	var payload event.OTPDispatchMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp dispatch notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: otp dispatch notification",
		"event_id", payload.EventID,
		"record_id", payload.RecordID,
		"channel", payload.Channel,
		"purpose", payload.Purpose,
		"to", payload.MaskedIdentifier,
	)

	if err := h.uc.DeliverOTP(ctx, usecase.DeliverOTPInput{
		EventID:          payload.EventID,
		RecordID:         payload.RecordID,
		Identifier:       payload.Identifier,
		MaskedIdentifier: payload.MaskedIdentifier,
		Channel:          payload.Channel,
		Purpose:          payload.Purpose,
		Code:             payload.Code,
		ExpirySeconds:    payload.ExpirySeconds,
		DisplayName:      payload.DisplayName,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp dispatch", "record_id", payload.RecordID, "error", err)
		return err
	}

	return nil
}
