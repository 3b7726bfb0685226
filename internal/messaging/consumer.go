package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Outcomes reported to an Observer.
const (
	OutcomeAcked     = "acked"
	OutcomeFailed    = "failed"
	OutcomeMalformed = "malformed"
)

// Handler processes a single event. Returning an error nacks the message.
type Handler[T any] func(ctx context.Context, event *T) error

// Observer is told about every message a consumer finishes with.
// lag is zero when the message carries no publish time.
type Observer interface {
	EventHandled(topic, outcome string, lag time.Duration)
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

type consumerConfig struct {
	observer Observer
}

// WithObserver reports message outcomes to o.
func WithObserver(o Observer) ConsumerOption {
	return func(c *consumerConfig) {
		c.observer = o
	}
}

type nopObserver struct{}

func (nopObserver) EventHandled(string, string, time.Duration) {}

// Consumer decodes JSON messages from one topic and passes them to a typed handler.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	observer   Observer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a consumer for topic. Nothing is read until Start.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	cfg := consumerConfig{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		observer:   cfg.observer,
		done:       make(chan struct{}),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		cancel()

		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	c.cancel = cancel

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer[T]) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			outcome := c.process(ctx, msg)
			c.observer.EventHandled(c.topic, outcome, lagOf(msg))
		}
	}
}

// process acks or nacks msg and returns the outcome.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) string {
	log := c.logger.With(zap.String("message_id", msg.UUID))

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Error("failed to unmarshal event", zap.Error(err))
		msg.Nack()

		return OutcomeMalformed
	}

	if err := c.handler(ctx, &event); err != nil {
		log.Error("failed to handle event", zap.Error(err))
		msg.Nack()

		return OutcomeFailed
	}

	msg.Ack()
	log.Debug("processed event")

	return OutcomeAcked
}

func lagOf(msg *message.Message) time.Duration {
	at, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(MetadataPublishedAt))
	if err != nil {
		return 0
	}

	return time.Since(at)
}

// Shutdown stops the consumer and waits for the in-flight message to complete.
// It is a no-op for a consumer that was never started.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
