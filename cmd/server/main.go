package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/grantpay/internal/adapter/handler/http"
	"github.com/wekeepgrowing/grantpay/internal/app"
	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/grantpay/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/grantpay/internal/infrastructure/http"
	providerinfra "github.com/wekeepgrowing/grantpay/internal/infrastructure/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/telemetry"
	"github.com/wekeepgrowing/grantpay/pkg/logger"
	"github.com/wekeepgrowing/grantpay/pkg/messaging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting grant payment service",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("environment", cfg.Service.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Service, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)

	providers, err := providerinfra.NewFactory(cfg.Providers, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize payment providers", zap.Error(err))
	}

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis.Enabled() {
		redisClient, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		publisher = redisClient
	} else {
		zapLogger.Warn("Redis is not configured, status events are discarded")
	}

	useCases, err := app.NewUseCases(cfg, repos, providers, publisher, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize use cases", zap.Error(err))
	}

	routes := httpServer.Handlers{
		Payments:       handlers.NewPaymentHandler(useCases.Payments, useCases.Queries, useCases.Batches, zapLogger),
		Reconciliation: handlers.NewReconciliationHandler(useCases.Reconciliation, useCases.Queries, useCases.Statements, zapLogger),
	}
	if useCases.Webhooks != nil {
		routes.Webhooks = handlers.NewWebhookHandler(useCases.Webhooks, zapLogger)
	} else {
		zapLogger.Warn("Webhook secret is not configured, status callbacks are disabled")
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg.Server.GRPC, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, routes)

	errCh := make(chan error, 2)
	go func() {
		if err := grpcSrv.Start(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("Shutdown signal received")
	case err := <-errCh:
		zapLogger.Error("Server stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	grpcSrv.SetServing(false)

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}
	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush traces", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
