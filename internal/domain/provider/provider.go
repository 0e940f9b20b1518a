package provider

import (
	"context"
	"time"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// Dispatcher submits a payment to one settlement rail. Implementations must
// send the payment ID as the provider idempotency key so a retried Dispatch
// never creates a second external transaction.
type Dispatcher interface {
	Method() entity.PaymentMethod
	Dispatch(ctx context.Context, payment *model.Payment) (*DispatchResult, error)
}

// Verifier queries a rail for the status of a dispatched payment.
type Verifier interface {
	// QueryStatus looks the payment up by reference, or by idempotency key
	// (the payment ID) when reference is empty. A transaction the provider
	// does not know is reported with Found false, not as an error.
	QueryStatus(ctx context.Context, payment *model.Payment, reference string) (*StatusResult, error)
}

// Registry resolves the dispatcher and verifier for a method.
type Registry interface {
	Dispatcher(method entity.PaymentMethod) (Dispatcher, error)
	Verifier(method entity.PaymentMethod) (Verifier, error)
}

// Status is a provider status normalized across rails.
type Status string

const (
	StatusAccepted       Status = "ACCEPTED"
	StatusPending        Status = "PENDING"
	StatusCompleted      Status = "COMPLETED"
	StatusFailed         Status = "FAILED"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
)

// IsTerminal reports whether the status settles the payment.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SettlementImmediate is the estimated settlement of cash vouchers.
const SettlementImmediate = "IMMEDIATE"

// DispatchResult is the normalized response of a successful dispatch.
type DispatchResult struct {
	TransactionID       string     `json:"transaction_id"`
	ProviderReference   string     `json:"provider_reference"`
	Status              Status     `json:"status"`
	EstimatedSettlement string     `json:"estimated_settlement"`
	PickupPIN           string     `json:"pickup_pin,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
}

// StatusResult is the normalized response of a status query.
type StatusResult struct {
	Found         bool   `json:"found"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Status        Status `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// SettlementDateLayout formats estimated settlement dates.
const SettlementDateLayout = "2006-01-02"

// NextBusinessDay returns the settlement date for a dispatch at t: the next
// calendar day for weekday dispatches, Monday for Saturday and Tuesday for
// Sunday.
func NextBusinessDay(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return day.AddDate(0, 0, 2)
	default:
		return day.AddDate(0, 0, 1)
	}
}
