package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("service:\n  name: grantpay\n"))
	require.NoError(t, err)

	assert.Equal(t, "ZAR", cfg.Service.Currency)
	assert.Equal(t, 100, cfg.Batch.ChunkSize)
	assert.Equal(t, time.Hour, cfg.Sweeper.StaleAfter)
	assert.Equal(t, 50, cfg.Fraud.HighThreshold)
	assert.Equal(t, 25, cfg.Fraud.MediumThreshold)
	assert.Equal(t, "payments.status", cfg.Redis.Channel)
	assert.False(t, cfg.Redis.Enabled())
	require.Len(t, cfg.Fraud.Rules, 4)
	assert.Equal(t, RuleDuplicatePayment, cfg.Fraud.Rules[0].Name)
	assert.Equal(t, 30*24*time.Hour, cfg.Providers.Cash.VoucherValidity)
}

func TestParseFraudRules(t *testing.T) {
	t.Run("partial rule inherits defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
fraud:
  rules:
    - name: high_frequency_payments
      weight: 40
`))
		require.NoError(t, err)
		require.Len(t, cfg.Fraud.Rules, 1)
		assert.Equal(t, 40, cfg.Fraud.Rules[0].Weight)
		assert.Equal(t, time.Hour, cfg.Fraud.Rules[0].Window)
		assert.Equal(t, 3, cfg.Fraud.Rules[0].MaxCount)
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := Parse([]byte("fraud:\n  rules:\n    - name: moon_phase\n"))
		assert.Error(t, err)
	})

	t.Run("inverted thresholds", func(t *testing.T) {
		_, err := Parse([]byte("fraud:\n  high_threshold: 20\n  medium_threshold: 30\n"))
		assert.Error(t, err)
	})
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grantpay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db
  port: 5432
  name: grants
  user: app
  password: secret
sweeper:
  stale_after: 30m
banks:
  - code: "250655"
    name: FNB
    universal_branch: "250655"
    account_lengths: [11]
`), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.StaleAfter)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=grants sslmode=disable", cfg.Database.DSN())
	require.Len(t, cfg.Banks, 1)
	assert.Equal(t, []int{11}, cfg.Banks[0].AccountLengths)
}
