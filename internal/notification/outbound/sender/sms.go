package sender

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"go.opentelemetry.io/otel/codes"
)

type SMS struct {
	client sms.SMS
	ins    instrument.Instrumentation
}

func NewSMS(client sms.SMS, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, ins: ins}
}

func (s *SMS) SendSMS(ctx context.Context, msg sms.Message) error {
	ctx, span := s.ins.Tracer("notification.outbound.sender").Start(ctx, "SendSMS")
	defer span.End()

	if err := s.client.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
