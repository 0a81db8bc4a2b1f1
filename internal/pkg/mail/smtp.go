package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrSMTPNoRecipients = errors.New("mail: no recipients provided")
	// ErrSMTPNoSender is returned when both Message.From and the configured From are empty.
	ErrSMTPNoSender = errors.New("mail: no sender provided")
)

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender address.
	From string
	// FromName is the optional display name of the default sender.
	FromName string
	// Insecure skips TLS certificate verification, for local mail catchers.
	Insecure bool
}

// SMTP is a Mail implementation backed by gomail.
type SMTP struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTP constructs an SMTP mail sender. No connection is opened until Send.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Insecure, //nolint:gosec // opt-in for local catchers
	}

	return &SMTP{dialer: dialer, from: cfg.From, fromName: cfg.FromName}, nil
}

// Send delivers a message over SMTP.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: smtp send: %w", err)
	}
	return nil
}

// Close implements io.Closer; every Send uses its own connection.
func (s *SMTP) Close() error {
	return nil
}

func (s *SMTP) build(msg Message) (*gomail.Message, error) {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return nil, ErrSMTPNoRecipients
	}

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"), gomail.SetEncoding(gomail.QuotedPrintable))

	switch {
	case msg.From != "":
		m.SetHeader("From", msg.From)
	case s.from != "":
		m.SetAddressHeader("From", s.from, s.fromName)
	default:
		return nil, ErrSMTPNoSender
	}

	if len(msg.To) > 0 {
		m.SetHeader("To", msg.To...)
	}
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	return m, nil
}
