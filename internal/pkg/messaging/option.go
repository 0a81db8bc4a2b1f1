package messaging

// consumeOptions is shared by every backend; each one reads the fields that
// mean something to it.
type consumeOptions struct {
	concurrency int
	maxInFlight int
	autoAck     bool
	// name identifies the consumer: the Kafka group, the NSQ channel, the
	// NATS queue group or the Pub/Sub subscription.
	name string
}

// ConsumeOption configures Consume.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	co.concurrency = max(co.concurrency, 1)
	return co
}

// WithConsumerName names the consumer so that replicas of the same service
// share the stream instead of each receiving every message. Kafka and NSQ
// require it; NATS without a name is a plain fan-out subscription; Pub/Sub
// falls back to treating the destination as the subscription id.
func WithConsumerName(name string) ConsumeOption {
	return func(o *consumeOptions) { o.name = name }
}

// WithConcurrency sets how many handler goroutines process messages.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithAutoAck acks when the handler returns nil and nacks otherwise.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

// WithMaxInFlight bounds unacknowledged messages (NSQ, Pub/Sub).
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}
