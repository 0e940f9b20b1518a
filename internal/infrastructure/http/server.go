package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/grantpay/internal/adapter/handler/http"
	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/middleware/auth"
	"github.com/wekeepgrowing/grantpay/pkg/logger"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Payments       *handlers.PaymentHandler
	Reconciliation *handlers.ReconciliationHandler
	// Webhooks may be nil, which leaves the status callback unmounted.
	Webhooks *handlers.WebhookHandler
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers Handlers
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("12M"))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		handlers: h,
	}
	s.setupRoutes()

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
			"version": s.config.Service.Version,
		})
	})

	// Provider status callbacks authenticate with an HMAC signature, not a JWT.
	if s.handlers.Webhooks != nil {
		s.echo.POST("/webhooks/payment-status", s.handlers.Webhooks.HandlePaymentStatus)
	}

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Issuer: s.config.JWT.Issuer,
		Logger: s.logger,
	}

	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	payments := s.handlers.Payments
	v1.POST("/payments", payments.SubmitPayment)
	v1.POST("/payments/batch", payments.SubmitBatch)
	v1.GET("/payments/:id", payments.GetPayment)
	v1.GET("/payments/:id/activity", payments.GetPaymentActivity)
	v1.GET("/payments/:id/audit", payments.GetPaymentAudit, auth.RequireRole(s.logger, auth.RoleAdmin))
	v1.POST("/payments/:id/verify", payments.VerifyPayment)
	v1.POST("/payments/:id/review", payments.ReviewPayment, auth.RequireRole(s.logger, auth.RoleReviewer))
	v1.POST("/fraud-check", payments.FraudCheck)
	v1.GET("/batches/:id", payments.GetBatch)
	v1.GET("/citizens/:citizenId/payments", payments.GetCitizenPayments)

	reconciliation := s.handlers.Reconciliation
	finance := v1.Group("", auth.RequireRole(s.logger, auth.RoleOperator))
	finance.POST("/reconciliations", reconciliation.Reconcile)
	finance.GET("/reconciliations/:id", reconciliation.GetReport)
	finance.POST("/settlements/statements", reconciliation.IngestStatement)
}
