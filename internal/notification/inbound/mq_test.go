package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	mu  sync.Mutex
	got []usecase.DeliverOTPInput
	cid []string
	err error
}

func (f *fakeUC) DeliverOTP(ctx context.Context, in usecase.DeliverOTPInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, in)
	f.cid = append(f.cid, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeUC) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type fakeMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m fakeMessage) Body() []byte                { return m.body }
func (m fakeMessage) Key() []byte                 { return nil }
func (m fakeMessage) Headers() []messaging.Header { return m.headers }
func (m fakeMessage) ID() string                  { return "1" }
func (m fakeMessage) Topic() string               { return event.OTPDispatchDestination }
func (m fakeMessage) Timestamp() time.Time        { return time.Time{} }
func (m fakeMessage) Ack(context.Context) error   { return nil }
func (m fakeMessage) Nack(context.Context) error  { return nil }

func dispatchBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(event.OTPDispatchMessage{
		EventID:          99,
		RecordID:         "rec-1",
		Identifier:       "alice@example.com",
		MaskedIdentifier: "a***e@example.com",
		Channel:          "EMAIL",
		Purpose:          "EMAIL_VERIFICATION",
		Code:             "123456",
		ExpirySeconds:    300,
	})
	require.NoError(t, err)
	return b
}

func TestMQHandler_OTPDispatchNotification(t *testing.T) {
	t.Run("MapsPayloadAndCorrelationID", func(t *testing.T) {
		f := &fakeUC{}
		h := &MQHandler{uc: f, uuid: uid.NewUUID(), ins: instrument.NewNoop()}

		err := h.OTPDispatchNotification(context.Background(), fakeMessage{
			body:    dispatchBody(t),
			headers: []messaging.Header{{Key: instrument.HeaderCorrelationID, Value: []byte("cid-7")}},
		})

		require.NoError(t, err)
		require.Len(t, f.got, 1)
		assert.Equal(t, int64(99), f.got[0].EventID)
		assert.Equal(t, "123456", f.got[0].Code)
		assert.Equal(t, int64(300), f.got[0].ExpirySeconds)
		assert.Equal(t, "cid-7", f.cid[0])
	})

	t.Run("GeneratesCorrelationIDWhenMissing", func(t *testing.T) {
		f := &fakeUC{}
		h := &MQHandler{uc: f, uuid: uid.NewUUID(), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPDispatchNotification(context.Background(), fakeMessage{body: dispatchBody(t)}))
		assert.NotEmpty(t, f.cid[0])
	})

	t.Run("BadJSONIsDropped", func(t *testing.T) {
		f := &fakeUC{}
		h := &MQHandler{uc: f, uuid: uid.NewUUID(), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPDispatchNotification(context.Background(), fakeMessage{body: []byte("{")}))
		assert.Zero(t, f.calls())
	})

	t.Run("UsecaseErrorIsReturned", func(t *testing.T) {
		boom := errors.New("smtp down")
		h := &MQHandler{uc: &fakeUC{err: boom}, uuid: uid.NewUUID(), ins: instrument.NewNoop()}

		assert.ErrorIs(t, h.OTPDispatchNotification(context.Background(), fakeMessage{body: dispatchBody(t)}), boom)
	})
}

func TestRegisterMQConsumer(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: otp_dispatch_notification
    concurrency: 2
`))
	require.NoError(t, err)

	broker := messaging.NewMemory(messaging.MemoryConfig{})
	gm := goroutine.NewManager(2)
	f := &fakeUC{}

	ctx, cancel := context.WithCancel(context.Background())
	RegisterMQConsumer(ctx, cfg, gm, broker, uid.NewUUID(), f, instrument.NewNoop())

	_, err = broker.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{Body: dispatchBody(t)})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	_ = gm.Wait()
}

func TestRegisterMQConsumer_DisabledByConfig(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    consumer_names: other\n"))
	require.NoError(t, err)

	broker := messaging.NewMemory(messaging.MemoryConfig{})
	gm := goroutine.NewManager(2)
	f := &fakeUC{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	RegisterMQConsumer(ctx, cfg, gm, broker, uid.NewUUID(), f, instrument.NewNoop())

	_, err = broker.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{Body: dispatchBody(t)})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.calls())
}
