package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/dto"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/middleware/auth"
	"github.com/wekeepgrowing/grantpay/internal/usecase"
)

// PaymentCommands is the write side of the payment lifecycle.
type PaymentCommands interface {
	SubmitPayment(ctx context.Context, req usecase.SubmitPaymentRequest) (*usecase.SubmitResult, error)
	VerifyPayment(ctx context.Context, paymentID, externalReference string) (*usecase.VerifyResult, error)
	ResolveReview(ctx context.Context, paymentID string, approve bool, reviewer, note string) (*usecase.SubmitResult, error)
	EvaluateFraud(ctx context.Context, req usecase.SubmitPaymentRequest) (*entity.FraudVerdict, error)
}

// PaymentQueries serves payment lookups.
type PaymentQueries interface {
	GetPayment(ctx context.Context, paymentID string) (*model.Payment, error)
	GetActivity(ctx context.Context, paymentID string) ([]*model.ActivityLogEntry, error)
	GetAuditTrail(ctx context.Context, paymentID string) ([]*model.AuditLog, error)
	GetPaymentHistory(ctx context.Context, citizenID string, params entity.PaginationParams) (*usecase.PaymentHistory, error)
	GetBatchRun(ctx context.Context, batchID string) (*model.BatchRun, error)
}

// BatchProcessor runs bulk submissions.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, items []usecase.SubmitPaymentRequest, meta usecase.BatchMeta) (*usecase.BatchResult, error)
}

type PaymentHandler struct {
	payments PaymentCommands
	queries  PaymentQueries
	batches  BatchProcessor
	logger   *zap.Logger
}

func NewPaymentHandler(payments PaymentCommands, queries PaymentQueries, batches BatchProcessor, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		queries:  queries,
		batches:  batches,
		logger:   logger,
	}
}

// SubmitPayment handles POST /api/v1/payments
func (h *PaymentHandler) SubmitPayment(c echo.Context) error {
	var req dto.SubmitPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
	}

	result, err := h.payments.SubmitPayment(c.Request().Context(), toSubmitRequest(req))
	if err != nil {
		return respondError(c, h.logger, err, "Payment submission failed", paymentExtra(result))
	}

	h.logger.Info("Payment submitted",
		zap.String("payment_id", result.PaymentID),
		zap.String("grant_id", req.GrantID),
		zap.String("status", string(result.Status)))

	return c.JSON(http.StatusCreated, result)
}

// SubmitBatch handles POST /api/v1/payments/batch
func (h *PaymentHandler) SubmitBatch(c echo.Context) error {
	var req dto.SubmitBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
	}

	operator, err := auth.RequireOperator(c)
	if err != nil {
		return err
	}

	items := make([]usecase.SubmitPaymentRequest, len(req.Payments))
	for i, p := range req.Payments {
		items[i] = toSubmitRequest(p)
	}

	result, err := h.batches.ProcessBatch(c.Request().Context(), items, usecase.BatchMeta{
		CreatedBy: operator.ID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		extra := echo.Map{}
		if result != nil {
			extra["batch"] = result
		}
		return respondError(c, h.logger, err, "Batch processing failed", extra)
	}

	h.logger.Info("Batch processed",
		zap.String("batch_id", result.BatchID),
		zap.String("operator_id", operator.ID),
		zap.Int("total", result.TotalPayments),
		zap.Int("failed", result.FailureCount))

	return c.JSON(http.StatusOK, result)
}

// GetBatch handles GET /api/v1/batches/:id
func (h *PaymentHandler) GetBatch(c echo.Context) error {
	run, err := h.queries.GetBatchRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get batch run", nil)
	}
	return c.JSON(http.StatusOK, run)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.queries.GetPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment", nil)
	}
	return c.JSON(http.StatusOK, payment)
}

// GetPaymentActivity handles GET /api/v1/payments/:id/activity
func (h *PaymentHandler) GetPaymentActivity(c echo.Context) error {
	entries, err := h.queries.GetActivity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment activity", nil)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_id": c.Param("id"),
		"activity":   entries,
	})
}

// GetPaymentAudit handles GET /api/v1/payments/:id/audit
func (h *PaymentHandler) GetPaymentAudit(c echo.Context) error {
	entries, err := h.queries.GetAuditTrail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment audit trail", nil)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_id": c.Param("id"),
		"changes":    entries,
	})
}

// VerifyPayment handles POST /api/v1/payments/:id/verify
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var req dto.VerifyPaymentRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
		}
		if err := c.Validate(req); err != nil {
			return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
		}
	}

	result, err := h.payments.VerifyPayment(c.Request().Context(), c.Param("id"), req.ExternalReference)
	if err != nil {
		return respondError(c, h.logger, err, "Payment verification failed", nil)
	}
	return c.JSON(http.StatusOK, result)
}

// ReviewPayment handles POST /api/v1/payments/:id/review
func (h *PaymentHandler) ReviewPayment(c echo.Context) error {
	var req dto.ReviewDecisionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
	}

	operator, err := auth.RequireOperator(c)
	if err != nil {
		return err
	}

	result, err := h.payments.ResolveReview(c.Request().Context(), c.Param("id"), *req.Approve, operator.ID, req.Note)
	if err != nil {
		return respondError(c, h.logger, err, "Review resolution failed", paymentExtra(result))
	}

	h.logger.Info("Review resolved",
		zap.String("payment_id", result.PaymentID),
		zap.String("reviewer", operator.ID),
		zap.Bool("approved", *req.Approve),
		zap.String("status", string(result.Status)))

	return c.JSON(http.StatusOK, result)
}

// FraudCheck handles POST /api/v1/fraud-check. Nothing is persisted.
func (h *PaymentHandler) FraudCheck(c echo.Context) error {
	var req dto.SubmitPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
	}

	verdict, err := h.payments.EvaluateFraud(c.Request().Context(), toSubmitRequest(req))
	if err != nil {
		return respondError(c, h.logger, err, "Fraud check failed", nil)
	}
	return c.JSON(http.StatusOK, verdict)
}

// GetCitizenPayments handles GET /api/v1/citizens/:citizenId/payments
func (h *PaymentHandler) GetCitizenPayments(c echo.Context) error {
	var params entity.PaginationParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		h.logger.Warn("Invalid pagination parameters", zap.Error(err))
		return badRequest(c, "INVALID_PAGINATION", "page and limit must be integers", nil)
	}

	history, err := h.queries.GetPaymentHistory(c.Request().Context(), c.Param("citizenId"), params)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment history", nil)
	}
	return c.JSON(http.StatusOK, history)
}

func toSubmitRequest(req dto.SubmitPaymentRequest) usecase.SubmitPaymentRequest {
	return usecase.SubmitPaymentRequest{
		GrantID:   req.GrantID,
		GrantType: req.GrantType,
		Amount:    req.Amount,
		Method:    entity.PaymentMethod(req.Method),
		Recipient: req.Recipient.Recipient(),
	}
}

func paymentExtra(result *usecase.SubmitResult) echo.Map {
	if result == nil || result.PaymentID == "" {
		return nil
	}
	return echo.Map{"payment": result}
}
