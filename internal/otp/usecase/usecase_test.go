package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/store"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

var errDeliveryDown = errors.New("broker down")

type fakeDelivery struct {
	mu   sync.Mutex
	sent []DispatchInput
	err  error
}

func (f *fakeDelivery) DispatchOTP(_ context.Context, in DispatchInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, in)
	return nil
}

func (f *fakeDelivery) last(t *testing.T) DispatchInput {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent, "nothing dispatched")
	return f.sent[len(f.sent)-1]
}

type fakePolicy struct {
	mu sync.Mutex
	m  map[entity.Purpose]entity.Policy
}

func (f *fakePolicy) Get(_ context.Context, p entity.Purpose) (entity.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pol, ok := f.m[p]
	if !ok {
		return entity.Policy{}, goerror.ErrNotFound
	}
	return pol, nil
}

func (f *fakePolicy) Save(_ context.Context, p entity.Purpose, pol entity.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.m[p] = pol
	return nil
}

func (f *fakePolicy) List(context.Context) (map[entity.Purpose]entity.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[entity.Purpose]entity.Policy, len(f.m))
	for k, v := range f.m {
		out[k] = v
	}
	return out, nil
}

func (f *fakePolicy) remove(p entity.Purpose) {
	f.mu.Lock()
	delete(f.m, p)
	f.mu.Unlock()
}

var defaultPolicy = entity.Policy{
	CodeLength:     6,
	Expiry:         5 * time.Minute,
	MaxAttempts:    3,
	ResendCooldown: time.Minute,
	Charset:        entity.CharsetDigits,
}

type fixture struct {
	uc       *Usecase
	store    *store.Memory
	policy   *fakePolicy
	delivery *fakeDelivery
	clock    *clock.Frozen
	hmac     hash.Hash
}

func newFixture(t *testing.T, cfgYAML string) *fixture {
	t.Helper()

	if cfgYAML == "" {
		cfgYAML = "modules:\n  otp:\n    policy:\n      allow_create: false\n"
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	hmac, err := hash.NewHMACSHA256([]byte("test-secret"))
	require.NoError(t, err)

	f := &fixture{
		store: store.NewMemory(instrument.NewNoop()),
		policy: &fakePolicy{m: map[entity.Purpose]entity.Policy{
			entity.PurposeEmailVerification: defaultPolicy,
			entity.PurposePhoneVerification: defaultPolicy,
		}},
		delivery: &fakeDelivery{},
		clock:    clock.NewFrozen(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		hmac:     hmac,
	}

	f.uc = New(Dependency{
		RepoStore:    f.store,
		RepoPolicy:   f.policy,
		RepoDelivery: f.delivery,
		Validator:    v,
		Config:       cfg,
		HMAC:         hmac,
		UUID:         uid.NewUUID(),
		Clock:        f.clock,
		Instrument:   instrument.NewNoop(),
	})

	return f
}

func (f *fixture) issue(t *testing.T, identifier string) (GenerateOutput, string) {
	t.Helper()

	out, err := f.uc.Generate(context.Background(), GenerateInput{
		Identifier: identifier,
		Channel:    entity.ChannelEmail,
		Purpose:    entity.PurposeEmailVerification,
	})
	require.NoError(t, err)
	require.Equal(t, entity.GenerateIssued, out.Status, out.Message)

	return out, f.delivery.last(t).Code
}
