package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clientdesk/portal/internal/api/middleware"
	"github.com/clientdesk/portal/internal/core/domain"
)

// ctxSession extracts the user and token injected by the Auth middleware.
// A missing value means the route was mounted without the middleware.
func ctxSession(c echo.Context) (*domain.User, string, error) {
	user, _ := c.Get(middleware.UserKey).(*domain.User)
	token, _ := c.Get(middleware.TokenKey).(string)
	if user == nil || token == "" {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return user, token, nil
}
