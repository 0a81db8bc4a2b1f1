package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	mails []mail.Message
	smses []sms.Message
	// errs is consumed one per call; nil entries succeed.
	errs []error
}

func (f *fakeSender) next() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeSender) SendMail(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return err
	}
	f.mails = append(f.mails, msg)
	return nil
}

func (f *fakeSender) SendSMS(_ context.Context, msg sms.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return err
	}
	f.smses = append(f.smses, msg)
	return nil
}

const testConfig = `
modules:
  notification:
    product_name: Acme
    retry:
      max_retries: 2
      base_delay_ms: 1
      max_delay_ms: 2
    templates:
      two_factor_auth:
        sms: "ACME 2FA {{.code}}"
`

func newUsecase(t *testing.T, f *fakeSender) *Usecase {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	c := clock.NewFrozen(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	return NewNotification(Dependency{
		RepoMail:    f,
		RepoSMS:     f,
		Idempotency: idempotency.NewMemory(c),
		Validator:   v,
		Config:      cfg,
		Clock:       c,
		Instrument:  instrument.NewNoop(),
	})
}

func emailInput() DeliverOTPInput {
	return DeliverOTPInput{
		EventID:          7,
		RecordID:         "rec-1",
		Identifier:       "alice@example.com",
		MaskedIdentifier: "a***e@example.com",
		Channel:          "EMAIL",
		Purpose:          "PASSWORD_RESET",
		Code:             "482913",
		ExpirySeconds:    600,
		DisplayName:      "Alice",
	}
}

func TestDeliverOTP_Email(t *testing.T) {
	// Arrange
	f := &fakeSender{}
	uc := newUsecase(t, f)

	// Act
	err := uc.DeliverOTP(context.Background(), emailInput())

	// Assert
	require.NoError(t, err)
	require.Len(t, f.mails, 1)
	got := f.mails[0]
	assert.Equal(t, []string{"alice@example.com"}, got.To)
	assert.Equal(t, "Reset your Acme password", got.Subject)
	assert.Contains(t, got.TextBody, "Hi Alice")
	assert.Contains(t, got.TextBody, "482913")
	assert.Contains(t, got.TextBody, "10 minutes")
}

func TestDeliverOTP_SMSUsesConfiguredTemplate(t *testing.T) {
	f := &fakeSender{}
	uc := newUsecase(t, f)

	in := emailInput()
	in.Channel = "SMS"
	in.Identifier = "+15550001111"
	in.Purpose = "TWO_FACTOR_AUTH"

	require.NoError(t, uc.DeliverOTP(context.Background(), in))
	require.Len(t, f.smses, 1)
	assert.Equal(t, sms.Message{To: "+15550001111", Body: "ACME 2FA 482913"}, f.smses[0])
}

func TestDeliverOTP_DuplicateEventSentOnce(t *testing.T) {
	f := &fakeSender{}
	uc := newUsecase(t, f)

	require.NoError(t, uc.DeliverOTP(context.Background(), emailInput()))
	require.NoError(t, uc.DeliverOTP(context.Background(), emailInput()))

	assert.Len(t, f.mails, 1)
}

func TestDeliverOTP_RetriesTransientFailure(t *testing.T) {
	f := &fakeSender{errs: []error{errors.New("smtp: 421"), errors.New("smtp: 421")}}
	uc := newUsecase(t, f)

	require.NoError(t, uc.DeliverOTP(context.Background(), emailInput()))
	assert.Len(t, f.mails, 1)
}

func TestDeliverOTP_GivesUpAndReleasesKey(t *testing.T) {
	boom := errors.New("smtp: down")
	f := &fakeSender{errs: []error{boom, boom, boom}}
	uc := newUsecase(t, f)

	err := uc.DeliverOTP(context.Background(), emailInput())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.mails)

	require.NoError(t, uc.DeliverOTP(context.Background(), emailInput()))
	assert.Len(t, f.mails, 1)
}

func TestDeliverOTP_RejectedIsNotRetried(t *testing.T) {
	f := &fakeSender{errs: []error{sms.ErrRejected, nil}}
	uc := newUsecase(t, f)

	in := emailInput()
	in.Channel = "SMS"
	in.Identifier = "+15550001111"

	err := uc.DeliverOTP(context.Background(), in)
	require.ErrorIs(t, err, sms.ErrRejected)
	assert.Empty(t, f.smses)
}

func TestDeliverOTP_InvalidPayloadDropped(t *testing.T) {
	tests := map[string]func(*DeliverOTPInput){
		"MissingEventID": func(in *DeliverOTPInput) { in.EventID = 0 },
		"UnknownChannel": func(in *DeliverOTPInput) { in.Channel = "PIGEON" },
		"BadCode":        func(in *DeliverOTPInput) { in.Code = "12" },
		"NoExpiry":       func(in *DeliverOTPInput) { in.ExpirySeconds = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := &fakeSender{}
			uc := newUsecase(t, f)

			in := emailInput()
			mutate(&in)

			require.NoError(t, uc.DeliverOTP(context.Background(), in))
			assert.Empty(t, f.mails)
			assert.Empty(t, f.smses)
		})
	}
}

func TestRender_DefaultsAndFallbacks(t *testing.T) {
	uc := newUsecase(t, &fakeSender{})

	in := emailInput()
	in.Purpose = "SOMETHING_NEW"
	in.DisplayName = ""
	in.ExpirySeconds = 3600

	got, err := uc.render(in)
	require.NoError(t, err)
	assert.Equal(t, "Your Acme verification code", got.Subject)
	assert.True(t, strings.HasPrefix(got.Body, "Hi there,"))
	assert.Contains(t, got.Body, "1 hour")
}

func TestHumanizeExpiry(t *testing.T) {
	assert.Equal(t, "45 seconds", humanizeExpiry(45*time.Second))
	assert.Equal(t, "1 minute", humanizeExpiry(time.Minute))
	assert.Equal(t, "90 seconds", humanizeExpiry(90*time.Second))
	assert.Equal(t, "2 hours", humanizeExpiry(2*time.Hour))
}
