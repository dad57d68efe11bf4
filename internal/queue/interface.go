package queue

import (
	"context"
	"time"
)

// MessageInterface is what job processors see. The concrete Message wraps an
// AMQP delivery; tests substitute their own implementation.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the broker-facing side of the refresh pipeline.
type JobQueue interface {
	// Enqueue publishes a job. Jobs with a future NotBefore are held by the
	// broker until they become ready.
	Enqueue(ctx context.Context, job *Job) error

	// Consume starts delivering messages. prefetchCount bounds how many
	// unacknowledged messages the consumer holds at once. The message
	// channel closes when ctx is cancelled or the connection drops; the
	// caller must ack or nack every message it receives.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages past a retention window.
// RabbitMQQueue implements it; the DLQ garbage collector consumes it.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
