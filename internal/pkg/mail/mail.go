package mail

import (
	"context"
	"io"
	"log/slog"
)

// Message represents an email payload.
type Message struct {
	// From overrides the configured sender.
	From string
	To   []string
	Cc   []string
	Bcc  []string

	Subject  string
	TextBody string
	HTMLBody string
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Log writes messages to the structured logger instead of sending them. It
// is meant for local development where no SMTP server is available.
type Log struct{}

func (Log) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail not sent, log driver active",
		"to", msg.To, "subject", msg.Subject, "body", msg.TextBody)
	return nil
}

func (Log) Close() error { return nil }
