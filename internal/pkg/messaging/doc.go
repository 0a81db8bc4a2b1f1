// Package messaging is a broker-agnostic publish/consume abstraction.
//
// Drivers: an in-process queue for single-instance deployments and tests,
// NATS, Kafka, NSQ and Google Pub/Sub. All drivers share the same consume
// loop semantics: a bounded pool of handler goroutines, panic recovery, and
// optional automatic ack/nack based on the handler result.
package messaging
