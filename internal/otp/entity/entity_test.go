package entity

import (
	"errors"
	"testing"
	"time"
)

func TestParseEnums(t *testing.T) {
	t.Parallel()

	if got := ParseChannel(" email "); got != ChannelEmail {
		t.Fatalf("ParseChannel() = %v", got)
	}
	if got := ParseChannel("fax"); got.IsValid() {
		t.Fatalf("ParseChannel(fax) = %v, want invalid", got)
	}
	for _, p := range Purposes {
		if got := ParsePurpose(p.Key()); got != p {
			t.Fatalf("ParsePurpose(%q) = %v, want %v", p.Key(), got, p)
		}
	}
	if ParsePurpose("LOGIN").IsValid() {
		t.Fatal("ParsePurpose(LOGIN) is valid")
	}
	if ParseCharset("numeric") != CharsetDigits || ParseCharset("Alphanumeric") != CharsetAlphanumeric {
		t.Fatal("ParseCharset() mismatch")
	}
	if CharsetUnknown.Alphabet() != "" || len(CharsetAlphanumeric.Alphabet()) != 36 {
		t.Fatal("Alphabet() mismatch")
	}
}

func TestRecord_Helpers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := Record{ExpiresAt: now, Attempts: 4, MaxAttempts: 3}

	if r.IsExpired(now) {
		t.Fatal("record expired exactly at ExpiresAt")
	}
	if !r.IsExpired(now.Add(time.Millisecond)) {
		t.Fatal("record not expired 1ms after ExpiresAt")
	}
	if r.AttemptsRemaining() != 0 {
		t.Fatalf("AttemptsRemaining() = %d, want 0", r.AttemptsRemaining())
	}
	r.Used = true
	if r.IsActive(now) {
		t.Fatal("used record is active")
	}
}

func TestPolicy_ValidateAndPatch(t *testing.T) {
	t.Parallel()

	base := Policy{CodeLength: 6, Expiry: 10 * time.Minute, MaxAttempts: 3, ResendCooldown: time.Minute, Charset: CharsetDigits}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	length := 40
	charset := CharsetAlphanumeric
	got := PolicyPatch{CodeLength: &length, Charset: &charset}.Apply(base)
	if got.CodeLength != 40 || got.Charset != CharsetAlphanumeric || got.MaxAttempts != 3 {
		t.Fatalf("Apply() = %+v", got)
	}
	if err := got.Validate(); !errors.Is(err, ErrPolicyInvalid) {
		t.Fatalf("Validate() error = %v, want ErrPolicyInvalid", err)
	}

	if !(PolicyPatch{}).IsEmpty() {
		t.Fatal("empty patch not empty")
	}
}
