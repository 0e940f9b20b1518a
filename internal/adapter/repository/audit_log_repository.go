package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type auditLogRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AuditLogRepository {
	return &auditLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *auditLogRepository) ListByRecord(ctx context.Context, table, recordID string) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog

	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", table, recordID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		r.logger.Error("Failed to list audit log",
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}

	return entries, nil
}
