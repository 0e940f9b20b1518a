package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/grantpay/internal/adapter/handler/http"
	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/middleware/auth"
)

func newTestServer() *Server {
	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "grantpay", Version: "test"},
		JWT:     config.JWTConfig{Secret: "server-secret"},
	}
	logger := zap.NewNop()
	return NewServer(cfg, logger, Handlers{
		Payments:       handlers.NewPaymentHandler(nil, nil, nil, logger),
		Reconciliation: handlers.NewReconciliationHandler(nil, nil, nil, logger),
		Webhooks:       handlers.NewWebhookHandler(nil, logger),
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "op-7",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	t.Run("health is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "grantpay", body["service"])
	})

	t.Run("api requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{}`))
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("reconciliation is limited to operators", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliations", strings.NewReader(`{"date":"2024-03-01"}`))
		req.Header.Set("Authorization", bearer(t, auth.RoleReviewer))
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("review is limited to reviewers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/p-1/review", strings.NewReader(`{"approve":true}`))
		req.Header.Set("Authorization", bearer(t, auth.RoleOperator))
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
