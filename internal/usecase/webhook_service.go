package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// SignatureVerifier checks a keyed signature over a payload.
type SignatureVerifier interface {
	Verify(signature string, parts ...[]byte) bool
}

// StatusApplier applies a provider status to a payment.
type StatusApplier interface {
	ApplyProviderStatus(ctx context.Context, update StatusUpdate) (*VerifyResult, error)
}

// StatusWebhookPayload is the body of a provider status callback.
type StatusWebhookPayload struct {
	EventID       string `json:"event_id"`
	PaymentID     string `json:"payment_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
	Reference     string `json:"reference,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// WebhookOutcome reports what happened to a callback.
type WebhookOutcome struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Applied   bool   `json:"applied"`
	PaymentID string `json:"payment_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// WebhookService authenticates provider callbacks, stores them once per event
// id and applies terminal statuses.
type WebhookService struct {
	verifier SignatureVerifier
	events   repository.WebhookEventRepository
	payments StatusApplier
	logger   *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(verifier SignatureVerifier, events repository.WebhookEventRepository, payments StatusApplier, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		events:   events,
		payments: payments,
		logger:   logger,
	}
}

// HandleStatusWebhook processes a raw callback body. A redelivered event is
// acknowledged without being applied again once it was completed or ignored;
// pending and failed events are processed again.
func (s *WebhookService) HandleStatusWebhook(ctx context.Context, body []byte, signature string) (*WebhookOutcome, error) {
	ctx, span := tracer.Start(ctx, "WebhookService.HandleStatusWebhook")
	defer span.End()

	outcome, err := s.handle(ctx, body, signature)
	recordError(span, err)
	return outcome, err
}

func (s *WebhookService) handle(ctx context.Context, body []byte, signature string) (*WebhookOutcome, error) {
	if signature == "" || !s.verifier.Verify(signature, body) {
		s.logger.Warn("Rejected webhook with invalid signature", zap.Int("body_size", len(body)))
		return nil, domainErrors.ErrInvalidSignature
	}

	var payload StatusWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domainErrors.NewValidationError("body", "invalid JSON payload")
	}
	if payload.EventID == "" {
		return nil, domainErrors.NewValidationError("event_id", "is required")
	}
	if payload.PaymentID == "" && payload.TransactionID == "" {
		return nil, domainErrors.NewValidationError("payment_id", "payment_id or transaction_id is required")
	}
	status := provider.Status(strings.ToUpper(strings.TrimSpace(payload.Status)))
	if status == "" {
		return nil, domainErrors.NewValidationError("status", "is required")
	}

	event := &model.ProviderWebhookEvent{
		EventID:          payload.EventID,
		PaymentID:        optionalString(payload.PaymentID),
		TransactionID:    optionalString(payload.TransactionID),
		ReportedStatus:   string(status),
		ProcessingStatus: model.WebhookStatusPending,
		Payload:          datatypes.JSON(body),
	}
	created, err := s.events.Save(ctx, event)
	if err != nil {
		s.logger.Error("Failed to store webhook event",
			zap.String("event_id", payload.EventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to store webhook event: %w", err)
	}

	outcome := &WebhookOutcome{
		EventID:   payload.EventID,
		PaymentID: payload.PaymentID,
	}
	if !created {
		stored, err := s.events.GetEvent(ctx, payload.EventID)
		if err != nil {
			return nil, fmt.Errorf("failed to load webhook event: %w", err)
		}
		if stored != nil && stored.ProcessingStatus.Settled() {
			s.logger.Info("Ignoring redelivered webhook event", zap.String("event_id", payload.EventID))
			outcome.Duplicate = true
			return outcome, nil
		}
		s.logger.Info("Retrying unprocessed webhook event", zap.String("event_id", payload.EventID))
	}

	if !status.IsTerminal() {
		s.markProcessed(ctx, payload.EventID, model.WebhookStatusIgnored, nil)
		outcome.Status = string(status)
		return outcome, nil
	}

	result, err := s.payments.ApplyProviderStatus(ctx, StatusUpdate{
		PaymentID:     payload.PaymentID,
		TransactionID: payload.TransactionID,
		Status:        status,
		Reference:     payload.Reference,
		Reason:        payload.Reason,
		Source:        "webhook",
	})
	if err != nil {
		message := err.Error()
		s.markProcessed(ctx, payload.EventID, model.WebhookStatusFailed, &message)
		s.logger.Warn("Failed to apply webhook status",
			zap.String("event_id", payload.EventID),
			zap.String("payment_id", payload.PaymentID),
			zap.String("transaction_id", payload.TransactionID),
			zap.Error(err))
		return outcome, err
	}

	s.markProcessed(ctx, payload.EventID, model.WebhookStatusCompleted, nil)
	outcome.Applied = result.Changed
	outcome.PaymentID = result.PaymentID
	outcome.Status = string(result.Status)
	return outcome, nil
}

func (s *WebhookService) markProcessed(ctx context.Context, eventID string, status model.WebhookStatus, lastError *string) {
	if err := s.events.MarkProcessed(ctx, eventID, status, lastError); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Failed to mark webhook event processed",
			zap.String("event_id", eventID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
