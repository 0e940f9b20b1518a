package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// ReconciliationService compares a day's payments with the settlement feed.
// It never changes payment status.
type ReconciliationService struct {
	payments repository.PaymentRepository
	feed     repository.SettlementFeed
	reports  repository.ReconciliationRepository
	logger   *zap.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	payments repository.PaymentRepository,
	feed repository.SettlementFeed,
	reports repository.ReconciliationRepository,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		payments: payments,
		feed:     feed,
		reports:  reports,
		logger:   logger,
	}
}

// ParseScope returns the method filter for scope; "all" and "" mean every
// method.
func ParseScope(scope string) (*entity.PaymentMethod, string, error) {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" || scope == entity.ReconciliationScopeAll {
		return nil, entity.ReconciliationScopeAll, nil
	}
	method, ok := entity.ParsePaymentMethod(scope)
	if !ok {
		return nil, "", domainErrors.NewValidationError("scope", fmt.Sprintf("unknown reconciliation scope %q", scope))
	}
	return &method, string(method), nil
}

// Reconcile matches every SUBMITTED or COMPLETED payment created on date
// against settlements of the same date and stores the report.
//
// Every payment first claims the first unused settlement with its reference.
// Payments left without one then take the first unused settlement with the
// same amount. Each settlement matches at most one payment.
func (s *ReconciliationService) Reconcile(ctx context.Context, date time.Time, scope string) (*model.ReconciliationReport, error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Reconcile", trace.WithAttributes(
		attribute.String("reconciliation.scope", scope),
	))
	defer span.End()

	report, err := s.reconcile(ctx, date, scope)
	recordError(span, err)
	return report, err
}

func (s *ReconciliationService) reconcile(ctx context.Context, date time.Time, scope string) (*model.ReconciliationReport, error) {
	method, scopeName, err := ParseScope(scope)
	if err != nil {
		return nil, err
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	payments, err := s.payments.ListForReconciliation(ctx, day, next, method)
	if err != nil {
		s.logger.Error("Failed to load payments for reconciliation",
			zap.Time("date", day),
			zap.String("scope", scopeName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	settlements, err := s.feed.ListSettlements(ctx, day, next, method)
	if err != nil {
		s.logger.Error("Failed to load settlement feed",
			zap.Time("date", day),
			zap.String("scope", scopeName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load settlement feed: %w", err)
	}

	report := &model.ReconciliationReport{
		ID:              uuid.NewString(),
		ReportDate:      day,
		Scope:           scopeName,
		TotalPayments:   len(payments),
		SettlementCount: len(settlements),
		Discrepancies:   []model.ReconciliationDiscrepancy{},
	}

	matches := matchSettlements(payments, settlements)
	for i, payment := range payments {
		idx := matches[i]
		if idx < 0 {
			report.UnmatchedCount++
			report.Discrepancies = append(report.Discrepancies, model.ReconciliationDiscrepancy{
				PaymentID: payment.ID,
				Kind:      entity.DiscrepancyNoBankMatch,
				Reference: payment.ExternalReference(),
				Expected:  payment.Amount,
			})
			continue
		}

		report.MatchedCount++
		settled := settlements[idx]
		if !settled.Amount.Equal(payment.Amount) {
			report.Discrepancies = append(report.Discrepancies, model.ReconciliationDiscrepancy{
				PaymentID: payment.ID,
				Kind:      entity.DiscrepancyAmountMismatch,
				Reference: settled.Reference,
				Expected:  payment.Amount,
				Actual:    decimal.NewNullDecimal(settled.Amount),
			})
		}
	}

	if err := s.reports.Save(ctx, report); err != nil {
		s.logger.Error("Failed to save reconciliation report",
			zap.String("report_id", report.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save reconciliation report: %w", err)
	}

	s.logger.Info("Reconciliation completed",
		zap.String("report_id", report.ID),
		zap.Time("date", day),
		zap.String("scope", scopeName),
		zap.Int("total", report.TotalPayments),
		zap.Int("matched", report.MatchedCount),
		zap.Int("unmatched", report.UnmatchedCount),
		zap.Int("discrepancies", len(report.Discrepancies)))

	return report, nil
}

// matchSettlements returns, per payment, the index of its settlement or -1.
// Reference matches are claimed for all payments before any amount fallback,
// so a fallback never takes a settlement another payment references.
func matchSettlements(payments []*model.Payment, settlements []*model.SettlementRecord) []int {
	matches := make([]int, len(payments))
	used := make([]bool, len(settlements))

	for i, payment := range payments {
		matches[i] = -1
		reference := payment.ExternalReference()
		if reference == "" {
			continue
		}
		for j, s := range settlements {
			if !used[j] && s.Reference == reference {
				matches[i] = j
				used[j] = true
				break
			}
		}
	}

	for i, payment := range payments {
		if matches[i] >= 0 {
			continue
		}
		for j, s := range settlements {
			if !used[j] && s.Amount.Equal(payment.Amount) {
				matches[i] = j
				used[j] = true
				break
			}
		}
	}

	return matches
}
