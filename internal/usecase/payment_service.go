package usecase

import (
	"context"
	"errors"
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
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// SubmitPaymentRequest is one payment to disburse.
type SubmitPaymentRequest struct {
	GrantID   string
	GrantType string
	Amount    decimal.Decimal
	Method    entity.PaymentMethod
	Recipient entity.Recipient
	BatchID   *string
}

// SubmitResult describes where a submission ended. PaymentID is set whenever
// a payment record was created, including failed submissions.
type SubmitResult struct {
	PaymentID           string               `json:"payment_id"`
	Status              entity.PaymentStatus `json:"status"`
	TransactionID       string               `json:"transaction_id,omitempty"`
	ProviderReference   string               `json:"provider_reference,omitempty"`
	ProviderStatus      provider.Status      `json:"provider_status,omitempty"`
	EstimatedSettlement string               `json:"estimated_settlement,omitempty"`
	PickupPIN           string               `json:"pickup_pin,omitempty"`
	ExpiresAt           *time.Time           `json:"expires_at,omitempty"`
	RiskScore           int                  `json:"risk_score"`
	RiskLevel           entity.RiskLevel     `json:"risk_level,omitempty"`
	Error               string               `json:"error,omitempty"`
}

// VerifyResult is the outcome of a provider status query.
type VerifyResult struct {
	PaymentID      string               `json:"payment_id"`
	Status         entity.PaymentStatus `json:"status"`
	ProviderStatus provider.Status      `json:"provider_status,omitempty"`
	TransactionID  string               `json:"transaction_id,omitempty"`
	Changed        bool                 `json:"changed"`
}

// StatusUpdate is a provider-reported status pushed to us.
type StatusUpdate struct {
	PaymentID     string
	TransactionID string
	Status        provider.Status
	Reference     string
	Reason        string
	Source        string
}

// PaymentService owns the payment lifecycle. Every status change goes through
// PaymentRepository.Transition, which serializes writers per payment.
type PaymentService struct {
	payments     repository.PaymentRepository
	activity     repository.ActivityLogRepository
	fraud        FraudEvaluator
	banks        BankValidator
	providers    provider.Registry
	notifier     *StatusNotifier
	currency     string
	recoverAfter time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// PaymentServiceOption customizes a PaymentService.
type PaymentServiceOption func(*PaymentService)

// WithServiceClock sets the time source.
func WithServiceClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) { s.now = now }
}

// WithPendingRecoveryAfter sets how long a payment must sit in PENDING before
// verification may recover it from the provider.
func WithPendingRecoveryAfter(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) { s.recoverAfter = d }
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments repository.PaymentRepository,
	activity repository.ActivityLogRepository,
	fraud FraudEvaluator,
	banks BankValidator,
	providers provider.Registry,
	notifier *StatusNotifier,
	currency string,
	logger *zap.Logger,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		payments:     payments,
		activity:     activity,
		fraud:        fraud,
		banks:        banks,
		providers:    providers,
		notifier:     notifier,
		currency:     currency,
		recoverAfter: time.Hour,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitPayment creates, screens and dispatches a payment. On return the
// payment is SUBMITTED, FAILED or HELD_FOR_REVIEW unless the store itself
// failed.
func (s *PaymentService) SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.SubmitPayment", trace.WithAttributes(
		attribute.String("grant.id", req.GrantID),
		attribute.String("payment.method", string(req.Method)),
	))
	defer span.End()

	result, err := s.submit(ctx, req)
	if result != nil {
		span.SetAttributes(
			attribute.String("payment.id", result.PaymentID),
			attribute.String("payment.status", string(result.Status)),
		)
	}
	recordError(span, err)
	return result, err
}

func (s *PaymentService) submit(ctx context.Context, req SubmitPaymentRequest) (*SubmitResult, error) {
	payment, err := s.newPayment(req)
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"grant_id": payment.GrantID,
		"amount":   payment.Amount.StringFixed(2),
		"method":   string(payment.Method),
	}
	if payment.BatchID != nil {
		details["batch_id"] = *payment.BatchID
	}
	if err := s.payments.Create(ctx, payment, details); err != nil {
		s.logger.Error("Failed to create payment",
			zap.String("grant_id", payment.GrantID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	s.notifier.Notify(ctx, payment)

	result := &SubmitResult{
		PaymentID: payment.ID,
		Status:    entity.PaymentStatusPending,
	}

	verdict := s.fraud.Evaluate(ctx, payment)
	result.RiskScore = verdict.RiskScore
	result.RiskLevel = verdict.RiskLevel
	s.appendActivity(ctx, payment.ID, model.ActivityFraudScreened, verdict.Details())

	if verdict.RiskLevel == entity.RiskLevelHigh {
		return s.holdForReview(ctx, payment, result, verdict)
	}

	return s.dispatch(ctx, payment, result, entity.PaymentStatusPending)
}

func (s *PaymentService) newPayment(req SubmitPaymentRequest) (*model.Payment, error) {
	method, ok := entity.ParsePaymentMethod(string(req.Method))
	if !ok {
		return nil, domainErrors.NewValidationError("method", fmt.Sprintf("unsupported payment method %q", req.Method))
	}
	if strings.TrimSpace(req.GrantID) == "" {
		return nil, domainErrors.NewValidationError("grant_id", "is required")
	}
	if !req.Amount.IsPositive() {
		return nil, domainErrors.NewValidationError("amount", "must be greater than zero")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, domainErrors.NewValidationError("amount", "must have at most two decimal places")
	}
	if strings.TrimSpace(req.Recipient.CitizenID) == "" {
		return nil, domainErrors.NewValidationError("recipient.citizen_id", "is required")
	}
	if strings.TrimSpace(req.Recipient.Name) == "" {
		return nil, domainErrors.NewValidationError("recipient.name", "is required")
	}
	if method.RequiresBankDetails() && req.Recipient.BankDetails.IsZero() {
		return nil, domainErrors.NewValidationError("recipient.bank_details", "required for "+string(method)+" payments")
	}

	payment := &model.Payment{
		ID:        uuid.NewString(),
		GrantID:   req.GrantID,
		GrantType: req.GrantType,
		BatchID:   req.BatchID,
		Amount:    req.Amount.Round(2),
		Currency:  s.currency,
		Method:    method,
		Status:    entity.PaymentStatusPending,
	}
	payment.SetRecipient(req.Recipient)
	return payment, nil
}

func (s *PaymentService) holdForReview(ctx context.Context, payment *model.Payment, result *SubmitResult, verdict *entity.FraudVerdict) (*SubmitResult, error) {
	held, err := s.payments.Transition(ctx, repository.TransitionRequest{
		PaymentID: payment.ID,
		From:      []entity.PaymentStatus{entity.PaymentStatusPending},
		To:        entity.PaymentStatusHeldForReview,
		Mutate: func(p *model.Payment) {
			p.RiskScore = verdict.RiskScore
		},
		Activity: model.ActivityHeldForReview,
		Details:  verdict.Details(),
	})
	if err != nil {
		s.logger.Error("Failed to hold payment for review",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return result, fmt.Errorf("failed to hold payment %s for review: %w", payment.ID, err)
	}
	s.notifier.Notify(ctx, held)

	s.logger.Warn("Payment held for manual review",
		zap.String("payment_id", payment.ID),
		zap.String("grant_id", payment.GrantID),
		zap.Int("risk_score", verdict.RiskScore),
		zap.Strings("triggered_rules", verdict.TriggeredRules))

	result.Status = entity.PaymentStatusHeldForReview
	riskErr := &domainErrors.FraudRiskError{
		PaymentID: payment.ID,
		RiskScore: verdict.RiskScore,
		Rules:     verdict.TriggeredRules,
	}
	result.Error = riskErr.Error()
	return result, riskErr
}

// dispatch validates bank details, sends the payment to its rail and records
// the outcome. from is the status the payment is in when dispatch starts.
func (s *PaymentService) dispatch(ctx context.Context, payment *model.Payment, result *SubmitResult, from entity.PaymentStatus) (*SubmitResult, error) {
	if payment.Method.RequiresBankDetails() {
		if err := s.banks.Validate(ctx, payment.BankDetails()); err != nil {
			return result, s.fail(ctx, payment, result, from, "bank_validation", err)
		}
	}

	dispatcher, err := s.providers.Dispatcher(payment.Method)
	if err != nil {
		return result, s.fail(ctx, payment, result, from, "dispatch", err)
	}

	res, err := dispatcher.Dispatch(ctx, payment)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrProvider) && !errors.Is(err, domainErrors.ErrValidation) {
			err = domainErrors.NewProviderError(string(payment.Method), domainErrors.ProviderCodeRequest, "dispatch failed", err)
		}
		return result, s.fail(ctx, payment, result, from, "dispatch", err)
	}

	submittedAt := s.now().UTC()
	details := map[string]interface{}{
		"transaction_id":       res.TransactionID,
		"provider_status":      string(res.Status),
		"estimated_settlement": res.EstimatedSettlement,
	}
	if res.ProviderReference != "" {
		details["provider_reference"] = res.ProviderReference
	}
	if res.ExpiresAt != nil {
		details["voucher_expires_at"] = res.ExpiresAt.UTC().Format(time.RFC3339)
	}

	submitted, err := s.payments.Transition(ctx, repository.TransitionRequest{
		PaymentID: payment.ID,
		From:      []entity.PaymentStatus{from},
		To:        entity.PaymentStatusSubmitted,
		Mutate: func(p *model.Payment) {
			p.TransactionID = optionalString(res.TransactionID)
			p.ProviderReference = optionalString(res.ProviderReference)
			p.EstimatedSettlement = optionalString(res.EstimatedSettlement)
			p.RiskScore = result.RiskScore
			p.SubmittedAt = &submittedAt
		},
		Activity: model.ActivitySubmitted,
		Details:  details,
	})
	if err != nil {
		// The rail accepted the payment; the sweeper recovers it by
		// idempotency key once it is stale.
		s.logger.Error("Failed to record submitted payment",
			zap.String("payment_id", payment.ID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err))
		return result, fmt.Errorf("failed to record submission of payment %s: %w", payment.ID, err)
	}
	s.notifier.Notify(ctx, submitted)

	s.logger.Info("Payment submitted",
		zap.String("payment_id", payment.ID),
		zap.String("method", string(payment.Method)),
		zap.String("transaction_id", res.TransactionID),
		zap.String("provider_status", string(res.Status)))

	result.Status = entity.PaymentStatusSubmitted
	result.TransactionID = res.TransactionID
	result.ProviderReference = res.ProviderReference
	result.ProviderStatus = res.Status
	result.EstimatedSettlement = res.EstimatedSettlement
	result.PickupPIN = res.PickupPIN
	result.ExpiresAt = res.ExpiresAt
	return result, nil
}

// fail moves the payment to FAILED, records cause and returns cause. A store
// failure is joined onto cause.
func (s *PaymentService) fail(ctx context.Context, payment *model.Payment, result *SubmitResult, from entity.PaymentStatus, stage string, cause error) error {
	message := cause.Error()
	details := map[string]interface{}{
		"stage": stage,
		"error": message,
	}
	var providerErr *domainErrors.ProviderError
	if errors.As(cause, &providerErr) {
		details["provider_code"] = providerErr.Code
	}

	s.logger.Error("Payment failed",
		zap.String("payment_id", payment.ID),
		zap.String("grant_id", payment.GrantID),
		zap.String("stage", stage),
		zap.Error(cause))

	failed, err := s.payments.Transition(ctx, repository.TransitionRequest{
		PaymentID: payment.ID,
		From:      []entity.PaymentStatus{from},
		To:        entity.PaymentStatusFailed,
		Mutate: func(p *model.Payment) {
			p.ErrorMessage = &message
			p.RiskScore = result.RiskScore
		},
		Activity: model.ActivityFailed,
		Details:  details,
	})
	if err != nil {
		s.logger.Error("Failed to mark payment as failed",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return errors.Join(cause, fmt.Errorf("failed to mark payment %s failed: %w", payment.ID, err))
	}
	s.notifier.Notify(ctx, failed)

	result.Status = entity.PaymentStatusFailed
	result.Error = message
	return cause
}

// VerifyPayment queries the payment's rail and applies a terminal status.
// A stale PENDING payment is looked up by idempotency key and recovered.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID, externalReference string) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.VerifyPayment", trace.WithAttributes(
		attribute.String("payment.id", paymentID),
	))
	defer span.End()

	result, err := s.verify(ctx, paymentID, externalReference)
	recordError(span, err)
	return result, err
}

func (s *PaymentService) verify(ctx context.Context, paymentID, externalReference string) (*VerifyResult, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	verifier, err := s.providers.Verifier(payment.Method)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case entity.PaymentStatusCompleted, entity.PaymentStatusFailed:
		return verifyResult(payment, "", false), nil
	case entity.PaymentStatusHeldForReview:
		return nil, &domainErrors.InvalidTransitionError{
			PaymentID: payment.ID,
			From:      string(payment.Status),
			To:        "verification",
		}
	case entity.PaymentStatusPending:
		return s.recoverPending(ctx, payment, verifier)
	}

	status, err := verifier.QueryStatus(ctx, payment, externalReference)
	if err != nil {
		s.logger.Error("Failed to query payment status",
			zap.String("payment_id", payment.ID),
			zap.String("method", string(payment.Method)),
			zap.Error(err))
		return nil, err
	}

	if !status.Found {
		reason := "transaction unknown to provider"
		if status.Reason != "" {
			reason = status.Reason
		}
		return s.settle(ctx, payment, provider.StatusFailed, status.Reference, reason, "verification")
	}
	return s.settle(ctx, payment, status.Status, status.Reference, status.Reason, "verification")
}

// recoverPending resolves a payment whose dispatch outcome was never
// recorded.
func (s *PaymentService) recoverPending(ctx context.Context, payment *model.Payment, verifier provider.Verifier) (*VerifyResult, error) {
	if s.now().Sub(payment.UpdatedAt) < s.recoverAfter {
		return verifyResult(payment, "", false), nil
	}

	status, err := verifier.QueryStatus(ctx, payment, "")
	if err != nil {
		s.logger.Error("Failed to look up pending payment by idempotency key",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return nil, err
	}

	if !status.Found {
		message := "dispatch never reached provider"
		failed, err := s.payments.Transition(ctx, repository.TransitionRequest{
			PaymentID: payment.ID,
			From:      []entity.PaymentStatus{entity.PaymentStatusPending},
			To:        entity.PaymentStatusFailed,
			Mutate: func(p *model.Payment) {
				p.ErrorMessage = &message
			},
			Activity: model.ActivityFailed,
			Details: map[string]interface{}{
				"stage": "recovery",
				"error": message,
			},
		})
		if err != nil {
			return s.transitionFailed(ctx, payment.ID, err)
		}
		s.notifier.Notify(ctx, failed)
		return verifyResult(failed, status.Status, true), nil
	}

	submittedAt := s.now().UTC()
	submitted, err := s.payments.Transition(ctx, repository.TransitionRequest{
		PaymentID: payment.ID,
		From:      []entity.PaymentStatus{entity.PaymentStatusPending},
		To:        entity.PaymentStatusSubmitted,
		Mutate: func(p *model.Payment) {
			p.TransactionID = optionalString(status.TransactionID)
			p.ProviderReference = optionalString(status.Reference)
			p.SubmittedAt = &submittedAt
		},
		Activity: model.ActivityRecovered,
		Details: map[string]interface{}{
			"transaction_id":  status.TransactionID,
			"provider_status": string(status.Status),
		},
	})
	if err != nil {
		return s.transitionFailed(ctx, payment.ID, err)
	}
	s.notifier.Notify(ctx, submitted)

	s.logger.Info("Recovered pending payment",
		zap.String("payment_id", payment.ID),
		zap.String("transaction_id", status.TransactionID))

	if !status.Status.IsTerminal() {
		return verifyResult(submitted, status.Status, true), nil
	}
	return s.settle(ctx, submitted, status.Status, status.Reference, status.Reason, "recovery")
}

// ApplyProviderStatus applies a pushed provider status. Non-terminal statuses
// and redeliveries of an already applied status leave the payment unchanged.
func (s *PaymentService) ApplyProviderStatus(ctx context.Context, update StatusUpdate) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.ApplyProviderStatus", trace.WithAttributes(
		attribute.String("payment.id", update.PaymentID),
		attribute.String("provider.status", string(update.Status)),
	))
	defer span.End()

	var (
		payment *model.Payment
		err     error
	)
	switch {
	case update.PaymentID != "":
		payment, err = s.getPayment(ctx, update.PaymentID)
	case update.TransactionID != "":
		payment, err = s.payments.GetByTransactionID(ctx, update.TransactionID)
		if err == nil && payment == nil {
			err = fmt.Errorf("%w: transaction %s", domainErrors.ErrPaymentNotFound, update.TransactionID)
		}
	default:
		err = domainErrors.NewValidationError("payment_id", "payment_id or transaction_id is required")
	}
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	source := update.Source
	if source == "" {
		source = "webhook"
	}
	result, err := s.settle(ctx, payment, update.Status, update.Reference, update.Reason, source)
	recordError(span, err)
	return result, err
}

// settle moves a SUBMITTED payment to the terminal status matching status.
func (s *PaymentService) settle(ctx context.Context, payment *model.Payment, status provider.Status, reference, reason, source string) (*VerifyResult, error) {
	var target entity.PaymentStatus
	switch status {
	case provider.StatusCompleted:
		target = entity.PaymentStatusCompleted
	case provider.StatusFailed:
		target = entity.PaymentStatusFailed
	default:
		return verifyResult(payment, status, false), nil
	}
	if payment.Status == target {
		return verifyResult(payment, status, false), nil
	}

	now := s.now().UTC()
	details := map[string]interface{}{
		"source":          source,
		"provider_status": string(status),
	}
	if reference != "" {
		details["reference"] = reference
	}

	activity := model.ActivityCompleted
	if target == entity.PaymentStatusFailed {
		activity = model.ActivityFailed
		if reason == "" {
			reason = "provider reported failure"
		}
		details["error"] = reason
	}

	updated, err := s.payments.Transition(ctx, repository.TransitionRequest{
		PaymentID: payment.ID,
		From:      []entity.PaymentStatus{entity.PaymentStatusSubmitted},
		To:        target,
		Mutate: func(p *model.Payment) {
			if reference != "" && p.ProviderReference == nil {
				p.ProviderReference = &reference
			}
			if target == entity.PaymentStatusCompleted {
				p.CompletedAt = &now
				return
			}
			p.ErrorMessage = &reason
		},
		Activity: activity,
		Details:  details,
	})
	if err != nil {
		return s.transitionFailed(ctx, payment.ID, err)
	}
	s.notifier.Notify(ctx, updated)

	s.logger.Info("Payment settled",
		zap.String("payment_id", payment.ID),
		zap.String("status", string(target)),
		zap.String("source", source))

	return verifyResult(updated, status, true), nil
}

// transitionFailed returns the current state when a concurrent writer already
// moved the payment, and the error otherwise.
func (s *PaymentService) transitionFailed(ctx context.Context, paymentID string, err error) (*VerifyResult, error) {
	if errors.Is(err, domainErrors.ErrInvalidTransition) {
		current, getErr := s.getPayment(ctx, paymentID)
		if getErr == nil && current.Status.IsTerminal() {
			return verifyResult(current, "", false), nil
		}
		return nil, err
	}
	s.logger.Error("Failed to transition payment",
		zap.String("payment_id", paymentID),
		zap.Error(err))
	return nil, fmt.Errorf("failed to update payment %s: %w", paymentID, err)
}

// ResolveReview approves or rejects a payment held for review. Approval
// dispatches the payment without a second fraud screen.
func (s *PaymentService) ResolveReview(ctx context.Context, paymentID string, approve bool, reviewer, note string) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.ResolveReview", trace.WithAttributes(
		attribute.String("payment.id", paymentID),
		attribute.Bool("review.approved", approve),
	))
	defer span.End()

	result, err := s.resolveReview(ctx, paymentID, approve, reviewer, note)
	recordError(span, err)
	return result, err
}

func (s *PaymentService) resolveReview(ctx context.Context, paymentID string, approve bool, reviewer, note string) (*SubmitResult, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	target := entity.PaymentStatusSubmitted
	if !approve {
		target = entity.PaymentStatusFailed
	}
	if payment.Status != entity.PaymentStatusHeldForReview {
		return nil, &domainErrors.InvalidTransitionError{
			PaymentID: payment.ID,
			From:      string(payment.Status),
			To:        string(target),
		}
	}

	result := &SubmitResult{
		PaymentID: payment.ID,
		Status:    payment.Status,
		RiskScore: payment.RiskScore,
	}
	details := map[string]interface{}{
		"reviewer": reviewer,
		"note":     note,
	}

	if !approve {
		message := "rejected in manual review"
		if note != "" {
			message += ": " + note
		}
		failed, err := s.payments.Transition(ctx, repository.TransitionRequest{
			PaymentID: payment.ID,
			From:      []entity.PaymentStatus{entity.PaymentStatusHeldForReview},
			To:        entity.PaymentStatusFailed,
			Mutate: func(p *model.Payment) {
				p.ErrorMessage = &message
			},
			Activity: model.ActivityReviewRejected,
			Details:  details,
		})
		if err != nil {
			s.logger.Error("Failed to reject held payment",
				zap.String("payment_id", payment.ID),
				zap.Error(err))
			return nil, fmt.Errorf("failed to reject payment %s: %w", payment.ID, err)
		}
		s.notifier.Notify(ctx, failed)

		s.logger.Info("Held payment rejected",
			zap.String("payment_id", payment.ID),
			zap.String("reviewer", reviewer))
		result.Status = entity.PaymentStatusFailed
		result.Error = message
		return result, nil
	}

	s.appendActivity(ctx, payment.ID, model.ActivityReviewApproved, details)
	s.logger.Info("Held payment approved",
		zap.String("payment_id", payment.ID),
		zap.String("reviewer", reviewer))

	return s.dispatch(ctx, payment, result, entity.PaymentStatusHeldForReview)
}

// EvaluateFraud scores a candidate without persisting it.
func (s *PaymentService) EvaluateFraud(ctx context.Context, req SubmitPaymentRequest) (*entity.FraudVerdict, error) {
	payment, err := s.newPayment(req)
	if err != nil {
		return nil, err
	}
	return s.fraud.Evaluate(ctx, payment), nil
}

func (s *PaymentService) getPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		s.logger.Error("Failed to get payment",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrPaymentNotFound, paymentID)
	}
	return payment, nil
}

func (s *PaymentService) appendActivity(ctx context.Context, paymentID, activity string, details map[string]interface{}) {
	err := s.activity.Append(ctx, &model.ActivityLogEntry{
		PaymentID: paymentID,
		Activity:  activity,
		Details:   details,
	})
	if err != nil {
		s.logger.Error("Failed to append payment activity",
			zap.String("payment_id", paymentID),
			zap.String("activity", activity),
			zap.Error(err))
	}
}

func verifyResult(payment *model.Payment, status provider.Status, changed bool) *VerifyResult {
	result := &VerifyResult{
		PaymentID:      payment.ID,
		Status:         payment.Status,
		ProviderStatus: status,
		Changed:        changed,
	}
	if payment.TransactionID != nil {
		result.TransactionID = *payment.TransactionID
	}
	return result
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
