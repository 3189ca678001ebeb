package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/server"
	"github.com/deppfellow/candychain/internal/service"
)

const welcomeMessage = "Welcome to CandyChain"

// WelcomeHandler answers the root route.
type WelcomeHandler struct {
	Handler
}

func NewWelcomeHandler(s *server.Server) *WelcomeHandler {
	return &WelcomeHandler{Handler: NewHandler(s)}
}

// Welcome greets the caller. It never touches the ledger.
func (h *WelcomeHandler) Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, service.Message{Message: welcomeMessage})
}
