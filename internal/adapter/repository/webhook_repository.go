package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores a webhook event, ignoring redeliveries of the same event id
func (r *webhookEventRepository) Save(ctx context.Context, event *model.ProviderWebhookEvent) (bool, error) {
	if event.ProcessingStatus == "" {
		event.ProcessingStatus = model.WebhookStatusPending
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.EventID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetEvent retrieves a stored webhook event by event id
func (r *webhookEventRepository) GetEvent(ctx context.Context, eventID string) (*model.ProviderWebhookEvent, error) {
	var event model.ProviderWebhookEvent

	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed records the processing outcome of a webhook event
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID string, status model.WebhookStatus, lastError *string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.ProviderWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processing_status": status,
			"last_error":        lastError,
			"processed_at":      &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}

	return nil
}
