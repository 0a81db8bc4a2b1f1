package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ErrQueueFull is returned by the in-process driver when a topic buffer is saturated.
var ErrQueueFull = errors.New("messaging: in-memory queue is full")

const (
	defaultMemoryBuffer          = 1024
	defaultMemoryMaxRedeliveries = 3
)

// MemoryConfig configures the in-process driver.
type MemoryConfig struct {
	// Buffer is the per-topic queue capacity.
	Buffer int
	// MaxRedeliveries bounds how many times a nacked message is re-queued.
	MaxRedeliveries int
}

// Memory is an in-process Messaging implementation. Consumers of the same
// topic compete for messages, like a queue group.
type Memory struct {
	buffer          int
	maxRedeliveries int

	mu     sync.Mutex
	topics map[string]chan *memoryMessage

	closed *atomic.Bool
	seq    *atomic.Int64
}

// NewMemory constructs the in-process driver.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultMemoryBuffer
	}
	if cfg.MaxRedeliveries < 0 {
		cfg.MaxRedeliveries = 0
	} else if cfg.MaxRedeliveries == 0 {
		cfg.MaxRedeliveries = defaultMemoryMaxRedeliveries
	}

	return &Memory{
		buffer:          cfg.Buffer,
		maxRedeliveries: cfg.MaxRedeliveries,
		topics:          make(map[string]chan *memoryMessage),
		closed:          atomic.NewBool(false),
		seq:             atomic.NewInt64(0),
	}
}

// Close rejects further publishes. Running consumers stop with their context.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

// Publish enqueues a message without blocking.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if m.closed.Load() {
		return PublishResult{}, ErrClosed
	}

	mm := &memoryMessage{
		id:        strconv.FormatInt(m.seq.Inc(), 10),
		topic:     destination,
		body:      append([]byte(nil), msg.Body...),
		key:       append([]byte(nil), msg.Key...),
		headers:   append([]Header(nil), msg.Headers...),
		timestamp: time.Now(),
		owner:     m,
	}

	if !m.enqueue(mm) {
		return PublishResult{}, ErrQueueFull
	}

	return PublishResult{MessageID: mm.id, Topic: destination, Timestamp: mm.timestamp}, nil
}

// Consume delivers messages of source to handler until ctx is canceled.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	queue := m.queue(source)
	work := make(chan *memoryMessage)

	wg := runWorkers(co.concurrency, work, func(msg *memoryMessage) {
		logDeliverError(ctx, "memory", source, deliver(ctx, "memory", msg, handler, co.autoAck))
	})

	defer func() {
		close(work)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-queue:
			select {
			case work <- msg:
			case <-ctx.Done():
				m.enqueue(msg)
				return ctx.Err()
			}
		}
	}
}

func (m *Memory) queue(topic string) chan *memoryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.topics[topic]
	if !ok {
		q = make(chan *memoryMessage, m.buffer)
		m.topics[topic] = q
	}
	return q
}

func (m *Memory) enqueue(msg *memoryMessage) bool {
	select {
	case m.queue(msg.topic) <- msg:
		return true
	default:
		return false
	}
}

type memoryMessage struct {
	responder

	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time
	attempt   int
	owner     *Memory
}

func (mm *memoryMessage) Body() []byte         { return mm.body }
func (mm *memoryMessage) Key() []byte          { return mm.key }
func (mm *memoryMessage) Headers() []Header    { return mm.headers }
func (mm *memoryMessage) ID() string           { return mm.id }
func (mm *memoryMessage) Topic() string        { return mm.topic }
func (mm *memoryMessage) Timestamp() time.Time { return mm.timestamp }

func (mm *memoryMessage) Ack(context.Context) error {
	mm.claim()
	return nil
}

// Nack re-queues a copy of the message until the redelivery budget is spent.
func (mm *memoryMessage) Nack(ctx context.Context) error {
	if !mm.claim() {
		return nil
	}

	if mm.attempt >= mm.owner.maxRedeliveries {
		slog.WarnContext(ctx, "dropping message after redeliveries", "topic", mm.topic, "id", mm.id, "attempts", mm.attempt+1)
		return nil
	}

	next := &memoryMessage{
		id:        mm.id,
		topic:     mm.topic,
		body:      mm.body,
		key:       mm.key,
		headers:   mm.headers,
		timestamp: mm.timestamp,
		attempt:   mm.attempt + 1,
		owner:     mm.owner,
	}
	if !mm.owner.enqueue(next) {
		return ErrQueueFull
	}
	return nil
}
