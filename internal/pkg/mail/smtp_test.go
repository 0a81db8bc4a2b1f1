package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewSMTP_RequiresHostPort(t *testing.T) {
	t.Parallel()

	if _, err := NewSMTP(SMTPConfig{Host: "smtp.local"}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("NewSMTP() error = %v, want ErrSMTPHostPortRequired", err)
	}
}

func TestSMTP_Build(t *testing.T) {
	t.Parallel()

	s, err := NewSMTP(SMTPConfig{Host: "smtp.local", Port: 1025, From: "no-reply@otpgate.dev", FromName: "OTP Gate"})
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}

	m, err := s.build(Message{To: []string{"user@example.com"}, Subject: "Your code", TextBody: "code 123456", HTMLBody: "<b>123456</b>"})
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"From: \"OTP Gate\" <no-reply@otpgate.dev>", "To: user@example.com", "Subject: Your code", "multipart/alternative", "text/html"} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q\n%s", want, raw)
		}
	}
}

func TestSMTP_BuildErrors(t *testing.T) {
	t.Parallel()

	s, _ := NewSMTP(SMTPConfig{Host: "smtp.local", Port: 1025})

	if _, err := s.build(Message{Subject: "x"}); !errors.Is(err, ErrSMTPNoRecipients) {
		t.Fatalf("build() error = %v, want ErrSMTPNoRecipients", err)
	}
	if _, err := s.build(Message{To: []string{"a@b.c"}}); !errors.Is(err, ErrSMTPNoSender) {
		t.Fatalf("build() error = %v, want ErrSMTPNoSender", err)
	}
}

func TestSMTP_SendCanceled(t *testing.T) {
	t.Parallel()

	s, _ := NewSMTP(SMTPConfig{Host: "smtp.local", Port: 1025, From: "a@b.c"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, Message{To: []string{"x@y.z"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
}
