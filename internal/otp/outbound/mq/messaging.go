package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mask"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Messaging
	uid    uid.NumberID
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, uid uid.NumberID, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, uid: uid, ins: ins}
}

// DispatchOTP publishes the code for the notification module. The identifier
// is the partition key so codes for one recipient stay ordered.
func (m *Messaging) DispatchOTP(ctx context.Context, in usecase.DispatchInput) error {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "DispatchOTP")
	defer span.End()

	eventID := m.uid.Generate()
	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("record_id", in.RecordID),
		attribute.String("channel", in.Channel.String()),
	)

	body, err := json.Marshal(event.OTPDispatchMessage{
		EventID:          eventID,
		RecordID:         in.RecordID,
		Identifier:       in.Identifier,
		MaskedIdentifier: mask.Identifier(in.Identifier),
		Channel:          in.Channel.String(),
		Purpose:          in.Purpose.String(),
		Code:             in.Code,
		ExpirySeconds:    int64(in.Expiry / time.Second),
		DisplayName:      in.DisplayName,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(in.Identifier),
		Headers: []messaging.Header{{Key: instrument.HeaderCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
