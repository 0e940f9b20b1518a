package database

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

func TestMigrateAndRepositories(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db, zap.NewNop()))
	// Idempotent.
	require.NoError(t, Migrate(db, zap.NewNop()))

	for _, m := range []interface{}{
		&model.Payment{}, &model.ActivityLogEntry{}, &model.BatchRun{},
		&model.ReconciliationReport{}, &model.ReconciliationDiscrepancy{},
		&model.SettlementStatement{}, &model.SettlementRecord{},
		&model.ProviderWebhookEvent{}, &model.AuditLog{},
	} {
		assert.True(t, db.Migrator().HasTable(m))
	}

	repos := NewRepositories(db, zap.NewNop())
	payment, err := repos.Payment.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, payment)

	entries, err := repos.AuditLog.ListByRecord(context.Background(), "payments", "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
