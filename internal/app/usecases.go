// Package app assembles the use cases shared by the server and the operator
// CLI.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/database"
	"github.com/wekeepgrowing/grantpay/internal/usecase"
	"github.com/wekeepgrowing/grantpay/pkg/messaging"
)

// UseCases is the container of every use case in the process.
type UseCases struct {
	Payments       *usecase.PaymentService
	Queries        *usecase.PaymentQueryService
	Batches        *usecase.BatchCoordinator
	Reconciliation *usecase.ReconciliationService
	Statements     *usecase.StatementIngestionService
	Sweeper        *usecase.PendingSweeper
	// Webhooks is nil when no webhook secret is configured.
	Webhooks *usecase.WebhookService
}

// NewUseCases wires the use cases onto repos and providers. publisher may be
// nil, in which case status events are dropped.
func NewUseCases(
	cfg *config.Config,
	repos *database.Repositories,
	providers provider.Registry,
	publisher messaging.Publisher,
	logger *zap.Logger,
) (*UseCases, error) {
	fraud, err := usecase.NewFraudEngine(cfg.Fraud, repos.Payment, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build fraud engine: %w", err)
	}

	notifier := usecase.NewStatusNotifier(publisher, cfg.Redis.Channel, logger)

	payments := usecase.NewPaymentService(
		repos.Payment,
		repos.Activity,
		fraud,
		usecase.NewBankDetailsValidator(cfg.Banks, logger),
		providers,
		notifier,
		cfg.Service.Currency,
		logger,
		usecase.WithPendingRecoveryAfter(cfg.Sweeper.StaleAfter),
	)

	useCases := &UseCases{
		Payments: payments,
		Queries: usecase.NewPaymentQueryService(
			repos.Payment,
			repos.Activity,
			repos.BatchRun,
			repos.Reconciliation,
			repos.AuditLog,
			logger,
		),
		Batches:        usecase.NewBatchCoordinator(payments, repos.BatchRun, cfg.Batch.ChunkSize, logger),
		Reconciliation: usecase.NewReconciliationService(repos.Payment, repos.Settlement, repos.Reconciliation, logger),
		Statements:     usecase.NewStatementIngestionService(repos.Settlement, logger),
		Sweeper:        usecase.NewPendingSweeper(repos.Payment, payments, cfg.Sweeper.StaleAfter, cfg.Sweeper.Limit, logger),
	}

	if cfg.Webhook.Secret != "" {
		signer, err := crypto.NewHMACSigner(cfg.Webhook.Secret)
		if err != nil {
			return nil, err
		}
		useCases.Webhooks = usecase.NewWebhookService(signer, repos.WebhookEvent, payments, logger)
	}

	return useCases, nil
}
