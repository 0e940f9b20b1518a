package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the payment and its creation activity in one transaction
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment, details map[string]interface{}) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		entry := &model.ActivityLogEntry{
			PaymentID: payment.ID,
			Activity:  model.ActivityCreated,
			Details:   details,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("payment_id", payment.ID),
			zap.String("grant_id", payment.GrantID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID
func (r *paymentRepository) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment",
			zap.String("payment_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// GetByTransactionID retrieves a payment by its provider transaction ID
func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment by transaction id",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// Transition moves a payment to req.To under a row lock
func (r *paymentRepository) Transition(ctx context.Context, req domainRepo.TransitionRequest) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.PaymentID).
			First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		from := payment.Status
		if !statusIn(from, req.From) || !from.CanTransitionTo(req.To) {
			return &domainErrors.InvalidTransitionError{
				PaymentID: payment.ID,
				From:      string(from),
				To:        string(req.To),
			}
		}

		amount, method := payment.Amount, payment.Method
		if req.Mutate != nil {
			req.Mutate(&payment)
		}
		payment.ID = req.PaymentID
		payment.Amount, payment.Method = amount, method
		payment.Status = req.To

		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		details := make(map[string]interface{}, len(req.Details)+2)
		for k, v := range req.Details {
			details[k] = v
		}
		details["from_status"] = string(from)
		details["to_status"] = string(req.To)

		entry := &model.ActivityLogEntry{
			PaymentID: payment.ID,
			Activity:  req.Activity,
			Details:   details,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}

		return nil
	})

	if err != nil {
		var transitionErr *domainErrors.InvalidTransitionError
		if errors.Is(err, domainErrors.ErrPaymentNotFound) || errors.As(err, &transitionErr) {
			return nil, err
		}
		r.logger.Error("Failed to transition payment",
			zap.String("payment_id", req.PaymentID),
			zap.String("to_status", string(req.To)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to transition payment: %w", err)
	}

	return &payment, nil
}

// ListByCitizen returns one page of a citizen's payments, newest first
func (r *paymentRepository) ListByCitizen(ctx context.Context, citizenID string, limit, offset int) ([]*model.Payment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("citizen_id = ?", citizenID).
		Count(&total).Error; err != nil {
		r.logger.Error("Failed to count citizen payments",
			zap.String("citizen_id", citizenID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var payments []*model.Payment
	if err := r.db.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		r.logger.Error("Failed to list citizen payments",
			zap.String("citizen_id", citizenID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, total, nil
}

// ListForReconciliation returns the payments a settlement feed should cover
func (r *paymentRepository) ListForReconciliation(ctx context.Context, from, to time.Time, method *entity.PaymentMethod) ([]*model.Payment, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []entity.PaymentStatus{entity.PaymentStatusSubmitted, entity.PaymentStatusCompleted}).
		Where("created_at >= ? AND created_at < ?", from, to)
	if method != nil {
		query = query.Where("method = ?", *method)
	}

	var payments []*model.Payment
	if err := query.Order("created_at ASC").Order("id ASC").Find(&payments).Error; err != nil {
		r.logger.Error("Failed to list payments for reconciliation",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments for reconciliation: %w", err)
	}

	return payments, nil
}

// ListStale returns payments that have not moved since olderThan
func (r *paymentRepository) ListStale(ctx context.Context, statuses []entity.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("updated_at < ?", olderThan).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var payments []*model.Payment
	if err := query.Find(&payments).Error; err != nil {
		r.logger.Error("Failed to list stale payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) CountByGrantAmountStatusSince(ctx context.Context, grantID string, amount decimal.Decimal, statuses []entity.PaymentStatus, since time.Time, excludeID string) (int64, error) {
	var count int64

	query := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("grant_id = ? AND amount = ?", grantID, amount).
		Where("status IN ?", statuses).
		Where("created_at >= ?", since)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count matching payments: %w", err)
	}
	return count, nil
}

func (r *paymentRepository) CompletedAmountsSince(ctx context.Context, grantID string, since time.Time) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal

	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("grant_id = ? AND status = ? AND created_at >= ?", grantID, entity.PaymentStatusCompleted, since).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed amounts: %w", err)
	}
	return amounts, nil
}

func (r *paymentRepository) LatestCompleted(ctx context.Context, grantID string) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).
		Where("grant_id = ? AND status = ?", grantID, entity.PaymentStatusCompleted).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest completed payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) CountByGrantSince(ctx context.Context, grantID string, since time.Time) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("grant_id = ? AND created_at >= ?", grantID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent payments: %w", err)
	}
	return count, nil
}

func statusIn(status entity.PaymentStatus, allowed []entity.PaymentStatus) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}
