package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// TransitionRequest describes one status change of a payment.
type TransitionRequest struct {
	PaymentID string
	// From lists the statuses the payment may currently be in.
	From []entity.PaymentStatus
	To   entity.PaymentStatus
	// Mutate applies extra column changes while the row is locked. It must not
	// change ID, Amount, Method or Status.
	Mutate   func(p *model.Payment)
	Activity string
	Details  map[string]interface{}
}

// PaymentHistoryReader serves the fraud rules. Reads are not locked.
type PaymentHistoryReader interface {
	// CountByGrantAmountStatusSince counts payments of grantID with the given
	// amount and one of statuses created at or after since, excluding excludeID.
	CountByGrantAmountStatusSince(ctx context.Context, grantID string, amount decimal.Decimal, statuses []entity.PaymentStatus, since time.Time, excludeID string) (int64, error)

	// CompletedAmountsSince returns the amounts of completed payments of grantID
	// created at or after since.
	CompletedAmountsSince(ctx context.Context, grantID string, since time.Time) ([]decimal.Decimal, error)

	// LatestCompleted returns the most recent completed payment of grantID, or nil.
	LatestCompleted(ctx context.Context, grantID string) (*model.Payment, error)

	// CountByGrantSince counts payments of grantID created at or after since.
	CountByGrantSince(ctx context.Context, grantID string, since time.Time) (int64, error)
}

// PaymentRepository is the durable store of payments and the only writer of
// their status.
type PaymentRepository interface {
	PaymentHistoryReader

	// Create inserts a PENDING payment together with its creation activity.
	Create(ctx context.Context, payment *model.Payment, details map[string]interface{}) error

	// GetByID returns nil, nil when the payment does not exist.
	GetByID(ctx context.Context, id string) (*model.Payment, error)

	// GetByTransactionID returns nil, nil when no payment carries transactionID.
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)

	// Transition atomically locks the row, checks the current status against
	// req.From, applies the change and appends the activity entry. It returns
	// the updated payment.
	Transition(ctx context.Context, req TransitionRequest) (*model.Payment, error)

	// ListByCitizen returns a page of payments for citizenID, newest first,
	// and the total count.
	ListByCitizen(ctx context.Context, citizenID string, limit, offset int) ([]*model.Payment, int64, error)

	// ListForReconciliation returns SUBMITTED and COMPLETED payments created in
	// [from, to), optionally restricted to one method, oldest first.
	ListForReconciliation(ctx context.Context, from, to time.Time, method *entity.PaymentMethod) ([]*model.Payment, error)

	// ListStale returns payments in statuses last updated before olderThan,
	// oldest first.
	ListStale(ctx context.Context, statuses []entity.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error)
}
