package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
)

var ErrUnsupportedChannel = errors.New("notification: unsupported channel")

type DeliverOTPInput struct {
	EventID          int64  `validate:"required,gt=0"`
	RecordID         string `validate:"required"`
	Identifier       string `validate:"required,max=254"`
	MaskedIdentifier string
	Channel          string `validate:"required,oneof=EMAIL SMS"`
	Purpose          string `validate:"required"`
	Code             string `validate:"required,otpcode"`
	ExpirySeconds    int64  `validate:"gt=0"`
	DisplayName      string `validate:"max=100"`
}

// DeliverOTP renders and sends one dispatched code. Invalid payloads and
// events already handled are dropped without error; a send that still fails
// after retries is returned so the broker can redeliver it.
func (s *Usecase) DeliverOTP(ctx context.Context, in DeliverOTPInput) error {
	ctx, span := s.startSpan(ctx, "DeliverOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "record_id", in.RecordID, "error", err)
		return nil
	}

	msg, err := s.render(in)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp message", "record_id", in.RecordID, "purpose", in.Purpose, "error", err)
		return nil
	}

	key := "notification:otp:" + strconv.FormatInt(in.EventID, 10)
	err = idempotency.Exec(ctx, s.idempotency, key, func(ctx context.Context) error {
		return s.send(ctx, msg)
	}, idempotency.WithRetryableFailure(), idempotency.WithStateTTL(defaultIdempotencyTTL))
	if idempotency.IsDuplicate(err) {
		slog.InfoContext(ctx, "otp dispatch already handled", "event_id", in.EventID, "record_id", in.RecordID, "state", err.Error())
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "record_id", in.RecordID, "channel", msg.Channel.String(), "to", in.MaskedIdentifier, "error", err)
		return err
	}

	slog.InfoContext(ctx, "otp delivered", "record_id", in.RecordID, "channel", msg.Channel.String(), "to", in.MaskedIdentifier)
	return nil
}

func (s *Usecase) render(in DeliverOTPInput) (entity.Rendered, error) {
	ch := entity.ChannelFromString(in.Channel)
	tpl := s.template(entity.TemplateKeyFromPurpose(in.Purpose))

	name := in.DisplayName
	if name == "" {
		name = "there"
	}
	data := map[string]any{
		"product": s.productName(),
		"name":    name,
		"code":    in.Code,
		"expiry":  humanizeExpiry(time.Duration(in.ExpirySeconds) * time.Second),
		"year":    s.clock.Now().Format("2006"),
	}

	out := entity.Rendered{Channel: ch, To: in.Identifier}

	var err error
	switch ch {
	case entity.ChannelEmail:
		if out.Subject, err = renderTemplate("subject", tpl.Subject, data); err != nil {
			return entity.Rendered{}, err
		}
		out.Body, err = renderTemplate("email", tpl.Email, data)
	case entity.ChannelSMS:
		out.Body, err = renderTemplate("sms", tpl.SMS, data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedChannel, in.Channel)
	}
	if err != nil {
		return entity.Rendered{}, err
	}

	return out, nil
}

func (s *Usecase) send(ctx context.Context, msg entity.Rendered) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		switch msg.Channel {
		case entity.ChannelEmail:
			err = s.repoMail.SendMail(ctx, mail.Message{To: []string{msg.To}, Subject: msg.Subject, TextBody: msg.Body})
		case entity.ChannelSMS:
			err = s.repoSMS.SendSMS(ctx, sms.Message{To: msg.To, Body: msg.Body})
		default:
			return ErrUnsupportedChannel
		}

		if err == nil {
			return nil
		}
		if errors.Is(err, sms.ErrRejected) || errors.Is(err, sms.ErrNoRecipient) {
			return err
		}

		slog.WarnContext(ctx, "retrying otp send", "channel", msg.Channel.String(), "error", err)
		return retry.RetryableError(err)
	})
}

func humanizeExpiry(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return plural(int64(d/time.Second), "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}
