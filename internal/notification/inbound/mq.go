package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const defaultConcurrency = 10

type uc interface {
	DeliverOTP(ctx context.Context, in usecase.DeliverOTPInput) error
}

type consumer struct {
	name    string // also the broker-side consumer name
	topic   string
	handler messaging.Handler
}

// RegisterMQConsumer starts every consumer named in
// modules.notification.consumer_names as a managed goroutine that stops
// when ctx is canceled.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	consumers := []consumer{
		{
			name:    event.OTPDispatchConsumerNotification,
			topic:   event.OTPDispatchDestination,
			handler: h.OTPDispatchNotification,
		},
	}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.concurrency")
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	for _, c := range consumers {
		if !slices.Contains(enabled, c.name) {
			slog.InfoContext(ctx, "consumer disabled by config", "consumer", c.name)
			continue
		}

		started := routine.Go(ctx, c.name, func(ctx context.Context) error {
			slog.InfoContext(ctx, "consumer started", "consumer", c.name, "topic", c.topic, "concurrency", concurrency)
			return messenger.Consume(ctx, c.topic, c.handler,
				messaging.WithConsumerName(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if !started {
			slog.ErrorContext(ctx, "failed to start consumer, goroutine limit reached", "consumer", c.name)
		}
	}
}
