package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// ReconciliationRepository stores reconciliation reports with their
// discrepancies.
type ReconciliationRepository interface {
	Save(ctx context.Context, report *model.ReconciliationReport) error

	// GetByID returns nil, nil when the report does not exist.
	GetByID(ctx context.Context, id string) (*model.ReconciliationReport, error)

	ListByDate(ctx context.Context, date time.Time) ([]*model.ReconciliationReport, error)
}

// SettlementFeed serves externally reported settlements.
type SettlementFeed interface {
	// ListSettlements returns records settled in [from, to), optionally for one
	// method, in ingestion order.
	ListSettlements(ctx context.Context, from, to time.Time, method *entity.PaymentMethod) ([]*model.SettlementRecord, error)
}

// SettlementRepository ingests bank statements and serves them as a feed.
type SettlementRepository interface {
	SettlementFeed

	StatementExistsByHash(ctx context.Context, hash string) (bool, error)

	// SaveStatement stores the statement and its records in one transaction.
	SaveStatement(ctx context.Context, statement *model.SettlementStatement, records []*model.SettlementRecord) error
}
