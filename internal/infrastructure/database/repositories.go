package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Payment        domainRepo.PaymentRepository
	Activity       domainRepo.ActivityLogRepository
	BatchRun       domainRepo.BatchRunRepository
	Reconciliation domainRepo.ReconciliationRepository
	Settlement     domainRepo.SettlementRepository
	WebhookEvent   domainRepo.WebhookEventRepository
	AuditLog       domainRepo.AuditLogRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Payment:        repository.NewPaymentRepository(db, logger),
		Activity:       repository.NewActivityLogRepository(db, logger),
		BatchRun:       repository.NewBatchRunRepository(db, logger),
		Reconciliation: repository.NewReconciliationRepository(db, logger),
		Settlement:     repository.NewSettlementRepository(db, logger),
		WebhookEvent:   repository.NewWebhookEventRepository(db, logger),
		AuditLog:       repository.NewAuditLogRepository(db, logger),
	}
}
