package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/database"
	pkgconfig "github.com/wekeepgrowing/grantpay/pkg/config"
	"github.com/wekeepgrowing/grantpay/pkg/logger"
)

const serviceName = "grantpay"

// openDB is replaced in tests.
var openDB = func(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	return database.NewConnection(cfg, log)
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "grantpayctl",
		Short:         "Operator jobs for the grant payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default: $CONFIG_PATH or configs/grantpay.yaml)")

	rootCmd.AddCommand(reconcileCmd(opts))
	rootCmd.AddCommand(sweepCmd(opts))
	rootCmd.AddCommand(ingestStatementCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))

	return rootCmd
}

// jobEnv is the process state a job runs with.
type jobEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	repos  *database.Repositories
}

// setup loads configuration, connects to the database and runs migrations.
func (o *rootOptions) setup() (*jobEnv, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	// Job output goes to stdout, so logs move to stderr.
	if cfg.Log.Output != "file" {
		cfg.Log.Output = "stderr"
	}
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := openDB(&cfg.Database, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db, zapLogger); err != nil {
		_ = database.Close(db, zapLogger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &jobEnv{
		cfg:    cfg,
		logger: zapLogger,
		db:     db,
		repos:  database.NewRepositories(db, zapLogger),
	}, nil
}

func (e *jobEnv) close() {
	if err := database.Close(e.db, e.logger); err != nil {
		e.logger.Error("Failed to close database connection", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// loadConfig reads the service YAML through viper so that GRANTPAY_* variables
// can override connection settings, then decodes it into the typed Config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	settings, err := pkgconfig.LoadFile(serviceName, o.configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigFile(settings.ConfigFile())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, settings)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, settings pkgconfig.Config) {
	override := func(key string, dst *string) {
		if v := settings.GetString(key); v != "" {
			*dst = v
		}
	}

	override("database.host", &cfg.Database.Host)
	override("database.name", &cfg.Database.Name)
	override("database.user", &cfg.Database.User)
	override("database.password", &cfg.Database.Password)
	override("database.sslmode", &cfg.Database.SSLMode)
	if port := settings.GetInt("database.port"); port != 0 {
		cfg.Database.Port = port
	}

	override("redis.addr", &cfg.Redis.Addr)
	override("redis.password", &cfg.Redis.Password)

	override("providers.eft.api_key", &cfg.Providers.EFT.APIKey)
	override("providers.eft.signing_secret", &cfg.Providers.EFT.SigningSecret)
	override("providers.card.secret_key", &cfg.Providers.Card.SecretKey)
	override("providers.cash.api_key", &cfg.Providers.Cash.APIKey)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
