package messaging

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrUnsupported is returned when a feature is not supported by the selected broker.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when publishing or consuming without a topic/subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrClosed is returned when the client was already closed.
	ErrClosed = errors.New("messaging: client is closed")
)

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic/subject).
type Publisher interface {
	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer consumes messages from a source. Consume blocks until ctx is
// canceled or the underlying subscription fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning and by Pub/Sub as the ordering key.
	Key []byte
	// Headers are propagated where the broker supports them (NATS, Kafka, Pub/Sub attributes).
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Message is a broker-agnostic received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	ID() string
	Topic() string
	Timestamp() time.Time

	// Ack acknowledges successful processing. Calling it twice is a no-op.
	Ack(ctx context.Context) error
	// Nack requests redelivery where the broker supports it.
	Nack(ctx context.Context) error
}

// HeaderValue returns the first header value matching key (case-insensitive).
func HeaderValue(msg Message, key string) string {
	for _, h := range msg.Headers() {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}
