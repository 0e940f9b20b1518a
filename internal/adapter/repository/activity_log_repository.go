package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type activityLogRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ActivityLogRepository {
	return &activityLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *model.ActivityLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.Error("Failed to append activity",
			zap.String("payment_id", entry.PaymentID),
			zap.String("activity", entry.Activity),
			zap.Error(err))
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (r *activityLogRepository) ListByPayment(ctx context.Context, paymentID string) ([]*model.ActivityLogEntry, error) {
	var entries []*model.ActivityLogEntry

	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		r.logger.Error("Failed to list activity",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, nil
}
