package events

import (
	"context"

	"go.uber.org/zap"
)

// AuditLog records lifecycle events in the structured log.
type AuditLog struct {
	logger *zap.Logger
}

// NewAuditLog creates an audit log writing to logger.
func NewAuditLog(logger *zap.Logger) *AuditLog {
	return &AuditLog{logger: logger}
}

// MappingCreated is a messaging handler for TopicMappingCreated.
func (a *AuditLog) MappingCreated(_ context.Context, event *MappingCreated) error {
	a.logger.Info("mapping created",
		zap.String("code", event.Code),
		zap.String("originalUrl", event.OriginalURL),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

// MappingDeactivated is a messaging handler for TopicMappingDeactivated.
func (a *AuditLog) MappingDeactivated(_ context.Context, event *MappingDeactivated) error {
	a.logger.Info("mapping deactivated",
		zap.String("code", event.Code),
		zap.String("originalUrl", event.OriginalURL),
		zap.Time("deactivatedAt", event.DeactivatedAt),
	)

	return nil
}
