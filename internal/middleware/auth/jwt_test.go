package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func createJWT(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}

func operatorClaims(subject, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   subject,
		"email": subject + "@sassa.example",
		"role":  role,
		"iss":   "grantpay-auth",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func testConfig() JWTConfig {
	return JWTConfig{
		Secret:    testSecret,
		Issuer:    "grantpay-auth",
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/health", "/webhooks"},
	}
}

func serve(t *testing.T, mw echo.MiddlewareFunc, path, authHeader string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(next)(c))
	return rec
}

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	token := createJWT(t, operatorClaims("op-17", RoleReviewer), jwt.SigningMethodHS256, testSecret)

	rec := serve(t, JWTMiddleware(testConfig()), "/api/v1/payments", "Bearer "+token, func(c echo.Context) error {
		operator, err := GetOperatorFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, "op-17", operator.ID)
		assert.Equal(t, "op-17@sassa.example", operator.Email)
		assert.Equal(t, RoleReviewer, operator.Role)
		assert.Equal(t, "op-17", c.Get("operator_id"))
		return ok(c)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := operatorClaims("op-1", RoleOperator)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noExpiry := operatorClaims("op-1", RoleOperator)
	delete(noExpiry, "exp")

	wrongIssuer := operatorClaims("op-1", RoleOperator)
	wrongIssuer["iss"] = "someone-else"

	noSubject := operatorClaims("", RoleOperator)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"not bearer", "Token abc", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer abc.def.ghi", "INVALID_TOKEN"},
		{"wrong secret", "Bearer " + createJWT(t, operatorClaims("op-1", RoleOperator), jwt.SigningMethodHS256, "other"), "INVALID_TOKEN"},
		{"expired", "Bearer " + createJWT(t, expired, jwt.SigningMethodHS256, testSecret), "INVALID_TOKEN"},
		{"no expiry", "Bearer " + createJWT(t, noExpiry, jwt.SigningMethodHS256, testSecret), "INVALID_TOKEN"},
		{"wrong issuer", "Bearer " + createJWT(t, wrongIssuer, jwt.SigningMethodHS256, testSecret), "INVALID_TOKEN"},
		{"no subject", "Bearer " + createJWT(t, noSubject, jwt.SigningMethodHS256, testSecret), "INVALID_CLAIMS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			rec := serve(t, JWTMiddleware(testConfig()), "/api/v1/payments", tt.header, func(c echo.Context) error {
				called = true
				return ok(c)
			})

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	rec := serve(t, JWTMiddleware(testConfig()), "/webhooks/payment-status", "", ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_IssuerOptional(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = ""
	claims := operatorClaims("op-2", RoleOperator)
	delete(claims, "iss")

	rec := serve(t, JWTMiddleware(cfg), "/api/v1/payments", "Bearer "+createJWT(t, claims, jwt.SigningMethodHS512, testSecret), ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	chain := func(mw ...echo.MiddlewareFunc) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			for i := len(mw) - 1; i >= 0; i-- {
				next = mw[i](next)
			}
			return next
		}
	}
	mw := chain(JWTMiddleware(testConfig()), RequireRole(zap.NewNop(), RoleReviewer))

	tests := []struct {
		role   string
		status int
	}{
		{RoleReviewer, http.StatusOK},
		{RoleAdmin, http.StatusOK},
		{RoleOperator, http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			token := createJWT(t, operatorClaims("op-3", tt.role), jwt.SigningMethodHS256, testSecret)
			rec := serve(t, mw, "/api/v1/payments/p1/review", "Bearer "+token, ok)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireOperator_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	operator, err := RequireOperator(c)
	assert.Nil(t, operator)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
