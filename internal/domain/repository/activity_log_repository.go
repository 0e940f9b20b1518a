package repository

import (
	"context"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// ActivityLogRepository appends and reads payment audit entries. Entries are
// never updated or deleted.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *model.ActivityLogEntry) error
	ListByPayment(ctx context.Context, paymentID string) ([]*model.ActivityLogEntry, error)
}
