package app

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/database"
	providerinfra "github.com/wekeepgrowing/grantpay/internal/infrastructure/provider"
)

func TestNewUseCases(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	repos := database.NewRepositories(db, zap.NewNop())

	t.Run("without webhook secret", func(t *testing.T) {
		cfg, err := config.Parse([]byte("service:\n  name: grantpay\n"))
		require.NoError(t, err)

		useCases, err := NewUseCases(cfg, repos, providerinfra.NewRegistry(), nil, zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, useCases.Payments)
		assert.NotNil(t, useCases.Queries)
		assert.NotNil(t, useCases.Batches)
		assert.NotNil(t, useCases.Reconciliation)
		assert.NotNil(t, useCases.Statements)
		assert.NotNil(t, useCases.Sweeper)
		assert.Nil(t, useCases.Webhooks)
	})

	t.Run("with webhook secret", func(t *testing.T) {
		cfg, err := config.Parse([]byte("webhook:\n  secret: s3cret\n"))
		require.NoError(t, err)

		useCases, err := NewUseCases(cfg, repos, providerinfra.NewRegistry(), nil, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, useCases.Webhooks)
	})

	t.Run("bad fraud rule", func(t *testing.T) {
		cfg, err := config.Parse([]byte("service:\n  name: grantpay\n"))
		require.NoError(t, err)
		cfg.Fraud.Rules = []config.FraudRuleConfig{{Name: "no_such_rule", Weight: 10}}

		_, err = NewUseCases(cfg, repos, providerinfra.NewRegistry(), nil, zap.NewNop())
		assert.Error(t, err)
	})
}
