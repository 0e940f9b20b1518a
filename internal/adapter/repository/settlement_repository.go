package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type settlementRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSettlementRepository creates a new settlement feed repository
func NewSettlementRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SettlementRepository {
	return &settlementRepository{
		db:     db,
		logger: logger,
	}
}

func (r *settlementRepository) StatementExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.SettlementStatement{}).
		Where("file_hash = ?", hash).
		Count(&count).Error
	if err != nil {
		r.logger.Error("Failed to check statement hash",
			zap.String("file_hash", hash),
			zap.Error(err))
		return false, fmt.Errorf("failed to check statement hash: %w", err)
	}

	return count > 0, nil
}

func (r *settlementRepository) SaveStatement(ctx context.Context, statement *model.SettlementStatement, records []*model.SettlementRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		statement.RecordCount = len(records)
		if err := tx.Create(statement).Error; err != nil {
			return fmt.Errorf("failed to insert statement: %w", err)
		}

		for _, record := range records {
			record.StatementID = statement.ID
		}
		if len(records) > 0 {
			if err := tx.CreateInBatches(records, 500).Error; err != nil {
				return fmt.Errorf("failed to insert settlement records: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to save settlement statement",
			zap.String("statement_id", statement.ID),
			zap.String("file_name", statement.FileName),
			zap.Error(err))
		return fmt.Errorf("failed to save settlement statement: %w", err)
	}

	return nil
}

func (r *settlementRepository) ListSettlements(ctx context.Context, from, to time.Time, method *entity.PaymentMethod) ([]*model.SettlementRecord, error) {
	query := r.db.WithContext(ctx).
		Where("settlement_date >= ? AND settlement_date < ?", from, to)
	if method != nil {
		query = query.Where("(method = ? OR method = '')", *method)
	}

	var records []*model.SettlementRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		r.logger.Error("Failed to list settlement records",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list settlement records: %w", err)
	}

	return records, nil
}
