package store

import (
	"context"

	"github.com/serroba/shortener-ws/internal/events"
	"github.com/serroba/shortener-ws/internal/messaging"
	"github.com/serroba/shortener-ws/internal/shortener"
	"go.uber.org/zap"
)

// PublishingRepository emits lifecycle events after successful writes.
// Publish failures are logged and never fail the write.
type PublishingRepository struct {
	shortener.Repository

	publishCreated     messaging.Publish[events.MappingCreated]
	publishDeactivated messaging.Publish[events.MappingDeactivated]
	logger             *zap.Logger
}

// NewPublishingRepository wraps store so that inserts and deactivations are published.
func NewPublishingRepository(
	store shortener.Repository,
	publishCreated messaging.Publish[events.MappingCreated],
	publishDeactivated messaging.Publish[events.MappingDeactivated],
	logger *zap.Logger,
) *PublishingRepository {
	return &PublishingRepository{
		Repository:         store,
		publishCreated:     publishCreated,
		publishDeactivated: publishDeactivated,
		logger:             logger,
	}
}

func (p *PublishingRepository) Insert(
	ctx context.Context, code shortener.Code, originalURL string,
) (*shortener.Mapping, error) {
	mapping, err := p.Repository.Insert(ctx, code, originalURL)
	if err != nil {
		return nil, err
	}

	if err := p.publishCreated(ctx, events.NewMappingCreated(mapping)); err != nil {
		p.logger.Error("failed to publish mapping created event",
			zap.String("code", string(mapping.Code)),
			zap.Error(err),
		)
	}

	return mapping, nil
}

// Deactivate publishes only when the call changed the mapping, so each
// deactivation is announced once.
func (p *PublishingRepository) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	mapping, changed, err := p.Repository.Deactivate(ctx, code)
	if err != nil || !changed {
		return mapping, changed, err
	}

	if err := p.publishDeactivated(ctx, events.NewMappingDeactivated(mapping)); err != nil {
		p.logger.Error("failed to publish mapping deactivated event",
			zap.String("code", string(mapping.Code)),
			zap.Error(err),
		)
	}

	return mapping, true, nil
}

// Compile-time check.
var _ shortener.Repository = (*PublishingRepository)(nil)
