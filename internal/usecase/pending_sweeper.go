package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// PaymentVerifier verifies a single payment.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, paymentID, externalReference string) (*VerifyResult, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Verified int `json:"verified"`
	Changed  int `json:"changed"`
	Failed   int `json:"failed"`
}

// PendingSweeper re-verifies payments stuck in PENDING or SUBMITTED. It owns
// no timer; a scheduler calls SweepPending.
type PendingSweeper struct {
	payments   repository.PaymentRepository
	verifier   PaymentVerifier
	staleAfter time.Duration
	limit      int
	now        func() time.Time
	logger     *zap.Logger
}

// NewPendingSweeper creates a new pending sweeper
func NewPendingSweeper(payments repository.PaymentRepository, verifier PaymentVerifier, staleAfter time.Duration, limit int, logger *zap.Logger) *PendingSweeper {
	return &PendingSweeper{
		payments:   payments,
		verifier:   verifier,
		staleAfter: staleAfter,
		limit:      limit,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the sweeper's time source.
func (s *PendingSweeper) SetClock(now func() time.Time) {
	s.now = now
}

// SweepPending verifies every stale payment. A failing payment is logged and
// skipped; only a failure to list payments is returned.
func (s *PendingSweeper) SweepPending(ctx context.Context) (*SweepResult, error) {
	ctx, span := tracer.Start(ctx, "PendingSweeper.SweepPending")
	defer span.End()

	olderThan := s.now().Add(-s.staleAfter)
	stale, err := s.payments.ListStale(ctx,
		[]entity.PaymentStatus{entity.PaymentStatusPending, entity.PaymentStatusSubmitted},
		olderThan, s.limit)
	if err != nil {
		s.logger.Error("Failed to list stale payments", zap.Error(err))
		recordError(span, err)
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}

	result := &SweepResult{Scanned: len(stale)}
	for _, payment := range stale {
		if ctx.Err() != nil {
			break
		}

		res, err := s.verifier.VerifyPayment(ctx, payment.ID, "")
		if err != nil {
			result.Failed++
			s.logger.Warn("Failed to verify stale payment",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(payment.Status)),
				zap.String("method", string(payment.Method)),
				zap.Error(err))
			continue
		}

		result.Verified++
		if res.Changed {
			result.Changed++
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.changed", result.Changed),
		attribute.Int("sweep.failed", result.Failed),
	)
	s.logger.Info("Pending sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("verified", result.Verified),
		zap.Int("changed", result.Changed),
		zap.Int("failed", result.Failed))

	return result, nil
}
