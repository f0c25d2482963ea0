package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clientdesk/portal/internal/core/domain"
)

// Context keys set by Auth.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// TokenVerifier resolves a bearer token to its user, rejecting expired and
// revoked tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// Auth validates the bearer token and injects the user and raw token into
// the context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}
			raw := strings.TrimSpace(parts[1])

			user, err := verifier.Verify(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return err
			}

			c.Set(UserKey, user)
			c.Set(TokenKey, raw)

			return next(c)
		}
	}
}
