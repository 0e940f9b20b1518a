package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/pkg/messaging"
)

// StatusEvent is published on every payment status change. The SMS notifier
// subscribes to it.
type StatusEvent struct {
	PaymentID  string    `json:"payment_id"`
	GrantID    string    `json:"grant_id"`
	CitizenID  string    `json:"citizen_id"`
	Phone      string    `json:"phone,omitempty"`
	Status     string    `json:"status"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Method     string    `json:"method"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StatusNotifier publishes status events. Publish failures are logged and
// never reach the caller.
type StatusNotifier struct {
	publisher messaging.Publisher
	channel   string
	logger    *zap.Logger
}

// NewStatusNotifier creates a notifier. A nil publisher discards events.
func NewStatusNotifier(publisher messaging.Publisher, channel string, logger *zap.Logger) *StatusNotifier {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &StatusNotifier{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Notify publishes the current status of payment.
func (n *StatusNotifier) Notify(ctx context.Context, payment *model.Payment) {
	if n == nil || payment == nil {
		return
	}

	event := StatusEvent{
		PaymentID:  payment.ID,
		GrantID:    payment.GrantID,
		CitizenID:  payment.CitizenID,
		Phone:      payment.RecipientPhone,
		Status:     string(payment.Status),
		Amount:     payment.Amount.StringFixed(2),
		Currency:   payment.Currency,
		Method:     string(payment.Method),
		OccurredAt: payment.UpdatedAt,
	}

	if err := n.publisher.Publish(ctx, n.channel, event); err != nil {
		n.logger.Warn("Failed to publish payment status event",
			zap.String("payment_id", payment.ID),
			zap.String("status", string(payment.Status)),
			zap.String("channel", n.channel),
			zap.Error(err))
	}
}
