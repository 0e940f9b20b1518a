package http

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	pkgErrors "github.com/wekeepgrowing/grantpay/pkg/errors"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the echo validator used by every handler.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// toAppError maps domain errors onto application error codes. Unknown errors
// become INTERNAL without exposing their text.
func toAppError(err error) *pkgErrors.AppError {
	var appErr *pkgErrors.AppError
	if pkgErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case pkgErrors.Is(err, domainErrors.ErrValidation):
		return pkgErrors.NewAppError(pkgErrors.ErrValidation, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrFraudRisk):
		return pkgErrors.NewAppError(pkgErrors.ErrFraudRisk, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrProvider):
		return pkgErrors.NewAppError(pkgErrors.ErrProvider, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrNotFound):
		return pkgErrors.NewAppError(pkgErrors.ErrNotFound, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrUnsupportedMethod):
		return pkgErrors.NewAppError(pkgErrors.ErrUnsupportedMethod, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrInvalidTransition):
		return pkgErrors.NewAppError(pkgErrors.ErrInvalidTransition, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrInvalidSignature):
		return pkgErrors.NewAppError(pkgErrors.ErrInvalidSignature, err.Error(), err)
	case pkgErrors.Is(err, domainErrors.ErrDuplicateStatement):
		return pkgErrors.NewAppError(pkgErrors.ErrConflict, err.Error(), err)
	case pkgErrors.Is(err, context.DeadlineExceeded):
		return pkgErrors.NewAppError(pkgErrors.ErrTimeout, "request timed out", err)
	default:
		return pkgErrors.NewAppError(pkgErrors.ErrInternal, "internal error", err)
	}
}

// respondError writes err as {"error", "code"}. extra fields, such as the
// payment a failed submission left behind, are merged into the body.
func respondError(c echo.Context, logger *zap.Logger, err error, msg string, extra echo.Map) error {
	appErr := toAppError(err)
	httpErr := pkgErrors.ToHTTPError(appErr)

	if httpErr.Code >= 500 {
		pkgErrors.LogError(logger, err, msg,
			zap.String("path", c.Path()),
			zap.String("method", c.Request().Method))
	} else {
		logger.Warn(msg,
			zap.Error(err),
			zap.String("error_code", appErr.Code()),
			zap.String("path", c.Path()))
	}

	body, _ := httpErr.Message.(echo.Map)
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(httpErr.Code, body)
}

func badRequest(c echo.Context, code, msg string, details error) error {
	body := echo.Map{
		"error": msg,
		"code":  code,
	}
	if details != nil {
		body["details"] = details.Error()
	}
	return c.JSON(http.StatusBadRequest, body)
}
