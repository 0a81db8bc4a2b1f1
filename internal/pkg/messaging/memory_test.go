package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func consumeInBackground(t *testing.T, m *Memory, topic string, h Handler, opts ...ConsumeOption) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Consume(ctx, topic, h, opts...) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Consume() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("Consume() did not stop")
		}
	})
	return cancel
}

func TestMemory_PublishConsume(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	got := make(chan Message, 1)

	consumeInBackground(t, m, "otp_dispatch", func(_ context.Context, msg Message) error {
		got <- msg
		return nil
	}, WithAutoAck(true), WithConcurrency(2))

	_, err := m.Publish(context.Background(), "otp_dispatch", OutgoingMessage{
		Body:    []byte(`{"hello":"world"}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-7")}},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-got:
		if string(msg.Body()) != `{"hello":"world"}` {
			t.Fatalf("body = %s", msg.Body())
		}
		if HeaderValue(msg, "CID") != "cid-7" {
			t.Fatalf("header lookup failed: %v", msg.Headers())
		}
		if msg.Topic() != "otp_dispatch" || msg.ID() == "" {
			t.Fatalf("metadata missing: topic=%q id=%q", msg.Topic(), msg.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not delivered")
	}
}

func TestMemory_NackRedelivers(t *testing.T) {
	m := NewMemory(MemoryConfig{MaxRedeliveries: 2})

	var mu sync.Mutex
	calls := 0
	delivered := make(chan struct{})

	consumeInBackground(t, m, "jobs", func(context.Context, Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		close(delivered)
		return nil
	}, WithAutoAck(true))

	if _, err := m.Publish(context.Background(), "jobs", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatalf("message was not redelivered")
	}
}

func TestMemory_QueueFull(t *testing.T) {
	m := NewMemory(MemoryConfig{Buffer: 1})

	if _, err := m.Publish(context.Background(), "t", OutgoingMessage{}); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}
	if _, err := m.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := m.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemory_Validation(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	if _, err := m.Publish(ctx, "", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("expected ErrDestinationRequired, got %v", err)
	}
	if err := m.Consume(ctx, "t", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("expected ErrHandlerRequired, got %v", err)
	}
}

func TestDeliver_RecoversPanic(t *testing.T) {
	m := NewMemory(MemoryConfig{MaxRedeliveries: -1})
	msg := &memoryMessage{topic: "t", owner: m}

	err := deliver(context.Background(), "memory", msg, func(context.Context, Message) error {
		panic("kaboom")
	}, true)
	if err == nil {
		t.Fatalf("expected error from panicking handler")
	}
	if msg.claim() {
		t.Fatalf("message should have been nacked")
	}
}
