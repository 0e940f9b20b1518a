package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/usecase"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, raw body)).
const SignatureHeader = "X-Payment-Signature"

const maxWebhookBody = 1 << 20

// StatusWebhookHandler processes provider status callbacks.
type StatusWebhookHandler interface {
	HandleStatusWebhook(ctx context.Context, body []byte, signature string) (*usecase.WebhookOutcome, error)
}

type WebhookHandler struct {
	webhooks StatusWebhookHandler
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks StatusWebhookHandler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

// HandlePaymentStatus handles POST /webhooks/payment-status. The body must be
// read raw because the signature covers the exact bytes.
func (h *WebhookHandler) HandlePaymentStatus(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Error reading request body",
			"code":  "INVALID_REQUEST",
		})
	}

	outcome, err := h.webhooks.HandleStatusWebhook(c.Request().Context(), body, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		return respondError(c, h.logger, err, "Payment status webhook rejected", nil)
	}

	if outcome.Duplicate {
		h.logger.Info("Duplicate webhook event acknowledged", zap.String("event_id", outcome.EventID))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"outcome":  outcome,
	})
}
