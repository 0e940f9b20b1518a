package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// auditedTables get a row-level audit trigger on postgres.
var auditedTables = []string{"payments", "batch_runs"}

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Payment{},
		&model.ActivityLogEntry{},
		&model.BatchRun{},
		&model.ReconciliationReport{},
		&model.ReconciliationDiscrepancy{},
		&model.SettlementStatement{},
		&model.SettlementRecord{},
		&model.ProviderWebhookEvent{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	if db.Dialector.Name() != "postgres" {
		logger.Info("Skipping postgres specific objects", zap.String("dialect", db.Dialector.Name()))
		return nil
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	if err := createAuditTriggers(db, logger); err != nil {
		logger.Error("Failed to create audit triggers", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes GORM tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// One live payment per idempotent dispatch reference.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id_unique ON payments (transaction_id) WHERE transaction_id IS NOT NULL`).Error; err != nil {
		return err
	}

	// Sweeper scans.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_open_updated ON payments (updated_at) WHERE status IN ('PENDING', 'SUBMITTED')`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_provider_webhook_events_open ON provider_webhook_events (created_at) WHERE processing_status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	return nil
}

// createAuditTriggers installs the audit_log trigger function and attaches it
// to every audited table.
func createAuditTriggers(db *gorm.DB, logger *zap.Logger) error {
	auditFunctionSQL := `
CREATE OR REPLACE FUNCTION audit_table_changes() RETURNS TRIGGER AS $$
BEGIN
    IF TG_OP = 'DELETE' THEN
        INSERT INTO audit_log (action, table_name, record_id, old_values, created_at)
        VALUES ('DELETE', TG_TABLE_NAME, OLD.id, to_jsonb(OLD), now());
        RETURN OLD;
    ELSIF TG_OP = 'UPDATE' THEN
        INSERT INTO audit_log (action, table_name, record_id, old_values, new_values, created_at)
        VALUES ('UPDATE', TG_TABLE_NAME, NEW.id, to_jsonb(OLD), to_jsonb(NEW), now());
        RETURN NEW;
    ELSIF TG_OP = 'INSERT' THEN
        INSERT INTO audit_log (action, table_name, record_id, new_values, created_at)
        VALUES ('INSERT', TG_TABLE_NAME, NEW.id, to_jsonb(NEW), now());
        RETURN NEW;
    END IF;
    RETURN NULL;
END;
$$ LANGUAGE plpgsql SECURITY DEFINER;`

	if err := db.Exec(auditFunctionSQL).Error; err != nil {
		return fmt.Errorf("failed to create audit trigger function: %w", err)
	}

	for _, table := range auditedTables {
		dropSQL := fmt.Sprintf(`DROP TRIGGER IF EXISTS audit_%s ON %s;`, table, table)
		if err := db.Exec(dropSQL).Error; err != nil {
			logger.Warn("Failed to drop existing trigger", zap.String("table", table), zap.Error(err))
		}

		triggerSQL := fmt.Sprintf(`
CREATE TRIGGER audit_%s
    AFTER INSERT OR UPDATE OR DELETE ON %s
    FOR EACH ROW EXECUTE FUNCTION audit_table_changes();`, table, table)
		if err := db.Exec(triggerSQL).Error; err != nil {
			return fmt.Errorf("failed to create audit trigger on %s: %w", table, err)
		}
		logger.Info("Created audit trigger", zap.String("table", table))
	}

	return nil
}
