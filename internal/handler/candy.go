package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/server"
	"github.com/deppfellow/candychain/internal/validation"
)

// CandyHandler serves the candy routes.
type CandyHandler struct {
	Handler
	candies CandyCollaborator
}

func NewCandyHandler(s *server.Server, candies CandyCollaborator) *CandyHandler {
	return &CandyHandler{
		Handler: NewHandler(s),
		candies: candies,
	}
}

// ListAll returns every candy on the ledger. The body is the collaborator's
// payload, byte for byte.
func (h *CandyHandler) ListAll(c echo.Context) error {
	return h.sendRaw(c, h.candies.QueryAllCandies(c.Request().Context()))
}

// FindByName returns the candy stored under the :candy path parameter.
func (h *CandyHandler) FindByName(c echo.Context) error {
	key := c.Param("candy")
	if strings.TrimSpace(key) == "" {
		return echo.ErrNotFound
	}
	return h.sendJSON(c, h.candies.FindCandy(c.Request().Context(), key))
}

// CreateCandyRequest is the body of POST /candies.
type CreateCandyRequest struct {
	Key     string `json:"key" validate:"required,ledgerkey"`
	Name    string `json:"name" validate:"required,max=64"`
	Texture string `json:"texture" validate:"required,max=64"`
	Colour  string `json:"colour" validate:"required,max=64"`
	Owner   string `json:"owner" validate:"required,max=64"`
}

func (r *CreateCandyRequest) Validate() error {
	return validation.Struct(r)
}

// Create stores a new candy and returns it.
func (h *CandyHandler) Create(c echo.Context, req *CreateCandyRequest) (*ledger.QueryResult, error) {
	return h.candies.CreateCandy(c.Request().Context(), req.Key, ledger.Candy{
		Name:    req.Name,
		Texture: req.Texture,
		Colour:  req.Colour,
		Owner:   req.Owner,
	})
}

// ChangeOwnerRequest is PUT /candies/:candy/owner.
type ChangeOwnerRequest struct {
	Candy string `param:"candy" json:"-" validate:"required,ledgerkey"`
	Owner string `json:"owner" validate:"required,max=64"`
}

func (r *ChangeOwnerRequest) Validate() error {
	return validation.Struct(r)
}

// ChangeOwner transfers a candy to a new owner.
func (h *CandyHandler) ChangeOwner(c echo.Context, req *ChangeOwnerRequest) (*ledger.QueryResult, error) {
	return h.candies.ChangeCandyOwner(c.Request().Context(), req.Candy, req.Owner)
}
