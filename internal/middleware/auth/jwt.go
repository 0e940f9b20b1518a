package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Operator is the authenticated back-office user behind a request.
type Operator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Operator roles.
const (
	RoleOperator = "operator"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// contextKey is used for storing the operator in context
type contextKey string

const (
	operatorContextKey contextKey = "authenticated_operator"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	// Issuer is enforced when set.
	Issuer    string
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
}

// JWTMiddleware validates HMAC signed operator tokens and stores the operator
// in the request context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip JWT validation for certain paths
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(config.Secret), nil
			})
			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				config.Logger.Warn("Token without subject",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid token claims",
					"code":  "INVALID_CLAIMS",
				})
			}

			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)
			operator := &Operator{
				ID:    subject,
				Email: email,
				Role:  role,
			}

			ctx := context.WithValue(c.Request().Context(), operatorContextKey, operator)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("operator_id", subject)

			config.Logger.Debug("Operator authenticated",
				zap.String("operator_id", subject),
				zap.String("role", role),
				zap.String("path", path))

			return next(c)
		}
	}
}

// RequireRole rejects operators whose role is not one of roles. Admins always
// pass.
func RequireRole(logger *zap.Logger, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			operator, err := RequireOperator(c)
			if err != nil {
				return err
			}
			if operator.Role == RoleAdmin {
				return next(c)
			}
			for _, role := range roles {
				if operator.Role == role {
					return next(c)
				}
			}

			logger.Warn("Operator lacks required role",
				zap.String("operator_id", operator.ID),
				zap.String("role", operator.Role),
				zap.Strings("required", roles))
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Insufficient role",
				"code":  "FORBIDDEN",
			})
		}
	}
}

// GetOperatorFromContext extracts the authenticated operator from the request context
func GetOperatorFromContext(c echo.Context) (*Operator, error) {
	operator, ok := c.Request().Context().Value(operatorContextKey).(*Operator)
	if !ok || operator == nil {
		return nil, fmt.Errorf("no authenticated operator found in context")
	}
	return operator, nil
}

// RequireOperator returns the authenticated operator, or a 401 echo.HTTPError
// that handlers return as is.
func RequireOperator(c echo.Context) (*Operator, error) {
	operator, err := GetOperatorFromContext(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}
	return operator, nil
}
