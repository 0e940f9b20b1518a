package errors

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestToHTTPError(t *testing.T) {
	t.Run("app error", func(t *testing.T) {
		he := ToHTTPError(NewAppError(ErrProvider, "bank rejected", New("dial tcp 10.0.0.7:443: timeout")))
		assert.Equal(t, http.StatusBadGateway, he.Code)
		assert.Equal(t, map[string]interface{}{"error": "bank rejected", "code": ErrProvider}, map[string]interface{}(he.Message.(echo.Map)))
	})

	t.Run("plain error", func(t *testing.T) {
		he := ToHTTPError(New("boom"))
		assert.Equal(t, http.StatusInternalServerError, he.Code)

		echoErr := echo.NewHTTPError(http.StatusNotFound, "no route")
		assert.Same(t, echoErr, ToHTTPError(echoErr))
		assert.Nil(t, ToHTTPError(nil))
	})

	t.Run("unknown code", func(t *testing.T) {
		status, grpcCode := GetCodeMapping("NOPE")
		assert.Equal(t, 500, status)
		assert.Equal(t, 13, grpcCode)
	})
}
