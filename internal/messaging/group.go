package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runner is a topic consumer whose lifecycle is owned by a ConsumerGroup.
type Runner interface {
	Topic() string
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup starts and stops a set of consumers sharing one subscriber.
type ConsumerGroup struct {
	runners    []Runner
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates an empty group over subscriber.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a consumer. It must be called before Start.
func (g *ConsumerGroup) Add(r Runner) {
	g.runners = append(g.runners, r)
}

// Topics lists the topics of the registered consumers in registration order.
func (g *ConsumerGroup) Topics() []string {
	topics := make([]string, len(g.runners))
	for i, r := range g.runners {
		topics[i] = r.Topic()
	}

	return topics
}

// Start starts every consumer. If one fails, the ones already running are stopped.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, r := range g.runners {
		if err := r.Start(ctx); err != nil {
			var rollback []error
			for _, started := range g.runners[:i] {
				rollback = append(rollback, started.Shutdown())
			}

			return errors.Join(fmt.Errorf("start consumer for %s: %w", r.Topic(), err), errors.Join(rollback...))
		}
	}

	g.logger.Info("consumer group started", zap.Strings("topics", g.Topics()))

	return nil
}

// Shutdown stops every consumer, then closes the subscriber. All errors are returned joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group", zap.Strings("topics", g.Topics()))

	errs := make([]error, 0, len(g.runners)+1)
	for _, r := range g.runners {
		if err := r.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("stop consumer for %s: %w", r.Topic(), err))
		}
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}

	return errors.Join(errs...)
}
