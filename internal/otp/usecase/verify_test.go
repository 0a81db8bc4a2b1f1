package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrongCode(code string) string {
	first := byte('0')
	if code[0] == '0' {
		first = '1'
	}
	return string(first) + code[1:]
}

func TestVerify_SuccessThenAlreadyUsed(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	ctx := context.Background()
	gen, code := f.issue(t, "alice@example.com")

	// Act
	out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code, Identifier: "alice@example.com"})

	// Assert
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, entity.VerifySuccess, out.Outcome)
	assert.Equal(t, entity.PurposeEmailVerification, out.Purpose)

	again, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, entity.VerifyAlreadyUsed, again.Outcome)
}

func TestVerify_UnknownRecord(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.uc.Verify(context.Background(), VerifyInput{RecordID: "nope", Code: "123456"})

	require.NoError(t, err)
	assert.Equal(t, entity.VerifyInvalidOrExpired, out.Outcome)
	assert.Equal(t, "Invalid or expired code", out.Message)
}

func TestVerify_MalformedCodeIsInvalidInput(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.uc.Verify(context.Background(), VerifyInput{RecordID: "x", Code: "12-4"})

	require.Error(t, err)
}

func TestVerify_AttemptBudget(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	gen, code := f.issue(t, "alice@example.com")
	bad := wrongCode(code)

	for want := 2; want >= 0; want-- {
		out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: bad})
		require.NoError(t, err)
		require.Equal(t, entity.VerifyInvalidCode, out.Outcome)
		require.NotNil(t, out.AttemptsRemaining)
		assert.Equal(t, want, *out.AttemptsRemaining)
	}

	out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyAttemptsExhausted, out.Outcome, "correct code after the budget is spent")

	for range 3 {
		out, err = f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code})
		require.NoError(t, err)
		assert.Equal(t, entity.VerifyInvalidOrExpired, out.Outcome)
	}
}

func TestVerify_Expiry(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	gen, code := f.issue(t, "alice@example.com")

	f.clock.Advance(5*time.Minute + time.Millisecond)

	out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyExpired, out.Outcome)

	out, err = f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyInvalidOrExpired, out.Outcome)
}

func TestVerify_AtExactExpiry(t *testing.T) {
	f := newFixture(t, "")
	gen, code := f.issue(t, "alice@example.com")

	f.clock.Advance(5 * time.Minute)

	out, err := f.uc.Verify(context.Background(), VerifyInput{RecordID: gen.RecordID, Code: code})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifySuccess, out.Outcome)
}

func TestVerify_IdentifierMismatch(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	gen, code := f.issue(t, "alice@example.com")

	out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: code, Identifier: "mallory@example.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyInvalidRequest, out.Outcome)

	st, err := f.uc.Status(ctx, gen.RecordID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.AttemptsRemaining, "mismatch does not consume an attempt")
}

func TestVerify_CaseInsensitive(t *testing.T) {
	f := newFixture(t, "")
	f.policy.m[entity.PurposeEmailVerification] = entity.Policy{
		CodeLength:     8,
		Expiry:         time.Minute,
		MaxAttempts:    3,
		ResendCooldown: time.Minute,
		Charset:        entity.CharsetAlphanumeric,
	}
	gen, code := f.issue(t, "alice@example.com")
	assert.Regexp(t, `^[A-Z0-9]{8}$`, code)

	out, err := f.uc.Verify(context.Background(), VerifyInput{RecordID: gen.RecordID, Code: strings.ToLower(code)})

	require.NoError(t, err)
	assert.Equal(t, entity.VerifySuccess, out.Outcome)
}

func TestVerifyByIdentifier(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, code := f.issue(t, "alice@example.com")

	out, err := f.uc.VerifyByIdentifier(ctx, VerifyByIdentifierInput{
		Identifier: "alice@example.com",
		Purpose:    entity.PurposePhoneVerification,
		Code:       code,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyInvalidOrExpired, out.Outcome, "other purpose has no record")

	out, err = f.uc.VerifyByIdentifier(ctx, VerifyByIdentifierInput{
		Identifier: "alice@example.com",
		Purpose:    entity.PurposeEmailVerification,
		Code:       code,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifySuccess, out.Outcome)

	out, err = f.uc.VerifyByIdentifier(ctx, VerifyByIdentifierInput{
		Identifier: "alice@example.com",
		Purpose:    entity.PurposeEmailVerification,
		Code:       code,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.VerifyInvalidOrExpired, out.Outcome, "used record is no longer active")
}

func TestVerify_ConcurrentSingleSuccess(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	gen, code := f.issue(t, "alice@example.com")
	bad := wrongCode(code)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[entity.VerifyOutcome]int{}
	)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := bad
			if i%2 == 0 {
				c = code
			}
			out, err := f.uc.Verify(ctx, VerifyInput{RecordID: gen.RecordID, Code: c})
			if err != nil {
				return
			}
			mu.Lock()
			outcomes[out.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, outcomes[entity.VerifySuccess], 1)
	assert.LessOrEqual(t, outcomes[entity.VerifySuccess]+outcomes[entity.VerifyInvalidCode], 3,
		"no more than max attempts reach the comparison")
}
