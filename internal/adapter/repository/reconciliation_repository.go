package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type reconciliationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReconciliationRepository creates a new reconciliation report repository
func NewReconciliationRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ReconciliationRepository {
	return &reconciliationRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores the report and its discrepancies atomically
func (r *reconciliationRepository) Save(ctx context.Context, report *model.ReconciliationReport) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		discrepancies := report.Discrepancies
		if err := tx.Omit("Discrepancies").Create(report).Error; err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		for i := range discrepancies {
			discrepancies[i].ReportID = report.ID
			discrepancies[i].Position = i
		}
		if len(discrepancies) > 0 {
			if err := tx.CreateInBatches(discrepancies, 200).Error; err != nil {
				return fmt.Errorf("failed to insert discrepancies: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to save reconciliation report",
			zap.String("report_id", report.ID),
			zap.String("scope", report.Scope),
			zap.Error(err))
		return fmt.Errorf("failed to save reconciliation report: %w", err)
	}

	return nil
}

func (r *reconciliationRepository) GetByID(ctx context.Context, id string) (*model.ReconciliationReport, error) {
	var report model.ReconciliationReport

	err := r.db.WithContext(ctx).
		Preload("Discrepancies", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get reconciliation report",
			zap.String("report_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get reconciliation report: %w", err)
	}

	return &report, nil
}

func (r *reconciliationRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.ReconciliationReport, error) {
	var reports []*model.ReconciliationReport

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	err := r.db.WithContext(ctx).
		Preload("Discrepancies", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("report_date >= ? AND report_date < ?", day, day.AddDate(0, 0, 1)).
		Order("created_at ASC").
		Find(&reports).Error
	if err != nil {
		r.logger.Error("Failed to list reconciliation reports",
			zap.Time("date", day),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list reconciliation reports: %w", err)
	}

	return reports, nil
}
