package repository

import (
	"context"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// AuditLogRepository reads the trigger-maintained row change log.
type AuditLogRepository interface {
	ListByRecord(ctx context.Context, table, recordID string) ([]*model.AuditLog, error)
}
