package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// PaymentHistory is one page of a citizen's payments.
type PaymentHistory struct {
	Payments   []*model.Payment      `json:"payments"`
	Pagination entity.PaginationMeta `json:"pagination"`
}

// PaymentQueryService serves read-only lookups.
type PaymentQueryService struct {
	payments repository.PaymentRepository
	activity repository.ActivityLogRepository
	batches  repository.BatchRunRepository
	reports  repository.ReconciliationRepository
	audit    repository.AuditLogRepository
	logger   *zap.Logger
}

// NewPaymentQueryService creates a new payment query service
func NewPaymentQueryService(
	payments repository.PaymentRepository,
	activity repository.ActivityLogRepository,
	batches repository.BatchRunRepository,
	reports repository.ReconciliationRepository,
	audit repository.AuditLogRepository,
	logger *zap.Logger,
) *PaymentQueryService {
	return &PaymentQueryService{
		payments: payments,
		activity: activity,
		batches:  batches,
		reports:  reports,
		audit:    audit,
		logger:   logger,
	}
}

// GetPaymentHistory returns a citizen's payments, newest first.
func (s *PaymentQueryService) GetPaymentHistory(ctx context.Context, citizenID string, params entity.PaginationParams) (*PaymentHistory, error) {
	if strings.TrimSpace(citizenID) == "" {
		return nil, domainErrors.NewValidationError("citizen_id", "is required")
	}
	params.Validate()

	payments, total, err := s.payments.ListByCitizen(ctx, citizenID, params.Limit, params.CalculateOffset())
	if err != nil {
		s.logger.Error("failed to list payments",
			zap.String("citizen_id", citizenID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment history: %w", err)
	}

	return &PaymentHistory{
		Payments:   payments,
		Pagination: entity.NewPaginationMeta(params.Page, params.Limit, total),
	}, nil
}

// GetPayment returns a payment or a not found error.
func (s *PaymentQueryService) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrPaymentNotFound, paymentID)
	}
	return payment, nil
}

// GetActivity returns the audit trail of a payment, oldest first.
func (s *PaymentQueryService) GetActivity(ctx context.Context, paymentID string) ([]*model.ActivityLogEntry, error) {
	if _, err := s.GetPayment(ctx, paymentID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment activity: %w", err)
	}
	return entries, nil
}

// GetAuditTrail returns the row-level change log of a payment.
func (s *PaymentQueryService) GetAuditTrail(ctx context.Context, paymentID string) ([]*model.AuditLog, error) {
	if _, err := s.GetPayment(ctx, paymentID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByRecord(ctx, model.Payment{}.TableName(), paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}
	return entries, nil
}

// GetBatchRun returns the progress of a batch.
func (s *PaymentQueryService) GetBatchRun(ctx context.Context, batchID string) (*model.BatchRun, error) {
	run, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrBatchNotFound, batchID)
	}
	return run, nil
}

// GetReconciliationReport returns a stored report.
func (s *PaymentQueryService) GetReconciliationReport(ctx context.Context, reportID string) (*model.ReconciliationReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("reconciliation report %w: %s", domainErrors.ErrNotFound, reportID)
	}
	return report, nil
}
