package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/server"
)

// AdminHandler serves the enrollment and wallet routes.
type AdminHandler struct {
	Handler
	admin AdminCollaborator
}

func NewAdminHandler(s *server.Server, admin AdminCollaborator) *AdminHandler {
	return &AdminHandler{
		Handler: NewHandler(s),
		admin:   admin,
	}
}

// EnrollAdmin enrolls the CA registrar and stores it in the wallet.
func (h *AdminHandler) EnrollAdmin(c echo.Context) error {
	return h.sendJSON(c, h.admin.EnrollAdmin(c.Request().Context()))
}

// RegisterUser registers the :id user with the CA and stores its
// enrollment in the wallet.
func (h *AdminHandler) RegisterUser(c echo.Context) error {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		return echo.ErrNotFound
	}
	return h.sendJSON(c, h.admin.EnrollAndRegisterUser(c.Request().Context(), id))
}

// ListIdentities reports the labels held in the wallet.
func (h *AdminHandler) ListIdentities(c echo.Context) error {
	return h.sendJSON(c, h.admin.ListIdentities(c.Request().Context()))
}

// RemoveIdentity drops the :id identity from the wallet so it can be
// enrolled again.
func (h *AdminHandler) RemoveIdentity(c echo.Context) error {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		return echo.ErrNotFound
	}
	return h.sendJSON(c, h.admin.RemoveIdentity(c.Request().Context(), id))
}
