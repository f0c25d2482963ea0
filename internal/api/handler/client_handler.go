package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

// ClientHandler serves the client directory.
type ClientHandler struct {
	directory ports.Directory
}

func NewClientHandler(directory ports.Directory) *ClientHandler {
	return &ClientHandler{directory: directory}
}

// List handles GET /clients. A storage failure yields an empty list.
//
// @Summary      List directory clients
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  false  "Case-insensitive filter over name, email and company"
// @Success      200  {object}  clientsResponse
// @Failure      401  {object}  errorResponse
// @Router       /clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	clients := h.directory.List(c.Request().Context())
	return c.JSON(http.StatusOK, clientsResponse{
		Clients: domain.FilterClients(clients, c.QueryParam("q")),
	})
}
