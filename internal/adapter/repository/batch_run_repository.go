package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type batchRunRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBatchRunRepository creates a new batch run repository
func NewBatchRunRepository(db *gorm.DB, logger *zap.Logger) domainRepo.BatchRunRepository {
	return &batchRunRepository{
		db:     db,
		logger: logger,
	}
}

func (r *batchRunRepository) Create(ctx context.Context, run *model.BatchRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logger.Error("Failed to create batch run",
			zap.String("batch_id", run.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create batch run: %w", err)
	}
	return nil
}

func (r *batchRunRepository) GetByID(ctx context.Context, id string) (*model.BatchRun, error) {
	var run model.BatchRun

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get batch run",
			zap.String("batch_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}

	return &run, nil
}

func (r *batchRunRepository) UpdateProgress(ctx context.Context, id string, processed int) error {
	result := r.db.WithContext(ctx).
		Model(&model.BatchRun{}).
		Where("id = ? AND status = ?", id, entity.BatchStatusInProgress).
		Updates(map[string]interface{}{
			"processed":  processed,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update batch progress",
			zap.String("batch_id", id),
			zap.Int("processed", processed),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update batch progress: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domainErrors.ErrBatchNotFound
	}

	return nil
}

func (r *batchRunRepository) Finalize(ctx context.Context, id string, status entity.BatchStatus, success, failure int, errMsg *string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.BatchRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"success_count": success,
			"failure_count": failure,
			"error":         errMsg,
			"completed_at":  &now,
			"updated_at":    now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to finalize batch run",
			zap.String("batch_id", id),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to finalize batch run: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domainErrors.ErrBatchNotFound
	}

	return nil
}
