// Package handler is the HTTP layer that sits right after the router.
//
// Handlers read path parameters and bodies, validate them through the
// validation package, call the collaborators in the service package and
// turn their answers into responses.
package handler

import (
	"context"

	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/server"
	"github.com/deppfellow/candychain/internal/service"
)

// CandyCollaborator answers the candy routes. *service.CandyService
// satisfies it.
type CandyCollaborator interface {
	QueryAllCandies(ctx context.Context) service.Result
	FindCandy(ctx context.Context, key string) service.Result
	CreateCandy(ctx context.Context, key string, candy ledger.Candy) (*ledger.QueryResult, error)
	ChangeCandyOwner(ctx context.Context, key, owner string) (*ledger.QueryResult, error)
	InitLedger(ctx context.Context, requestID string) (bool, error)
}

// AdminCollaborator answers the enrollment and wallet routes. *service.AdminService
// satisfies it.
type AdminCollaborator interface {
	EnrollAdmin(ctx context.Context) service.Result
	EnrollAndRegisterUser(ctx context.Context, id string) service.Result
	ListIdentities(ctx context.Context) service.Result
	RemoveIdentity(ctx context.Context, id string) service.Result
}

// Handlers groups every HTTP handler so the router takes a single value.
type Handlers struct {
	Welcome *WelcomeHandler
	Candy   *CandyHandler
	Admin   *AdminHandler
	Ledger  *LedgerHandler
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, candy CandyCollaborator, admin AdminCollaborator) *Handlers {
	return &Handlers{
		Welcome: NewWelcomeHandler(s),
		Candy:   NewCandyHandler(s, candy),
		Admin:   NewAdminHandler(s, admin),
		Ledger:  NewLedgerHandler(s, candy),
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
	}
}

// FromServices wires the handlers to the service container.
func FromServices(s *server.Server, services *service.Services) *Handlers {
	return NewHandlers(s, services.Candy, services.Admin)
}
