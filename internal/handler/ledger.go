package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/middleware"
	"github.com/deppfellow/candychain/internal/server"
)

// LedgerHandler serves ledger maintenance routes.
type LedgerHandler struct {
	Handler
	candies CandyCollaborator
}

func NewLedgerHandler(s *server.Server, candies CandyCollaborator) *LedgerHandler {
	return &LedgerHandler{
		Handler: NewHandler(s),
		candies: candies,
	}
}

// InitLedgerRequest carries no fields; the route takes no input.
type InitLedgerRequest struct{}

func (r *InitLedgerRequest) Validate() error {
	return nil
}

// InitLedgerResponse reports whether seeding ran inline or was queued.
type InitLedgerResponse struct {
	Message   string `json:"message"`
	Queued    bool   `json:"queued"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusCode is 202 when the work was handed to the job queue.
func (r InitLedgerResponse) StatusCode() int {
	if r.Queued {
		return http.StatusAccepted
	}
	return http.StatusOK
}

// Init seeds the ledger with the sample candies.
func (h *LedgerHandler) Init(c echo.Context, _ *InitLedgerRequest) (InitLedgerResponse, error) {
	requestID := middleware.GetRequestID(c)

	queued, err := h.candies.InitLedger(c.Request().Context(), requestID)
	if err != nil {
		return InitLedgerResponse{}, err
	}

	resp := InitLedgerResponse{Queued: queued, RequestID: requestID}
	if queued {
		resp.Message = "Ledger initialization queued"
	} else {
		resp.Message = "Ledger initialized"
	}
	return resp, nil
}
