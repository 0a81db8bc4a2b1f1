// Package sms delivers text messages through an HTTP gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrGatewayURLRequired is returned when the gateway endpoint is missing.
	ErrGatewayURLRequired = errors.New("sms: gateway url is required")
	// ErrNoRecipient is returned when Message.To is empty.
	ErrNoRecipient = errors.New("sms: recipient is required")
	// ErrRejected is returned when the gateway answers with a non-retryable 4xx.
	ErrRejected = errors.New("sms: gateway rejected message")
)

// Message is a single text message.
type Message struct {
	To   string
	Body string
}

// SMS abstracts a text message provider.
type SMS interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// GatewayConfig configures the HTTP gateway sender.
type GatewayConfig struct {
	// URL is the endpoint receiving POST {"to","from","body"}.
	URL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// From is the sender ID.
	From string

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Gateway posts messages as JSON and retries on transport errors and 5xx/429.
type Gateway struct {
	client *retryablehttp.Client
	url    string
	apiKey string
	from   string
}

type gatewayRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, ErrGatewayURLRequired
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Gateway{client: client, url: cfg.URL, apiKey: cfg.APIKey, from: cfg.From}, nil
}

func (g *Gateway) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(gatewayRequest{To: msg.To, From: g.from, Body: msg.Body})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}
		return fmt.Errorf("sms: gateway status %d", resp.StatusCode)
	}

	return nil
}

func (g *Gateway) Close() error {
	g.client.HTTPClient.CloseIdleConnections()
	return nil
}

// Log writes messages to the structured logger instead of sending them.
type Log struct{}

func (Log) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "sms not sent, log driver active", "to", msg.To, "body", msg.Body)
	return nil
}

func (Log) Close() error { return nil }
