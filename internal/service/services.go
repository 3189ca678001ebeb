// Package service contains the business logic.
//
// It sits between the handler layer and the ledger, CA and wallet. The
// collaborator calls behind the candy and admin routes report through a
// Result rather than an error so the handler decides how a failure is
// rendered.
package service

import (
	"github.com/deppfellow/candychain/internal/server"
)

type Services struct {
	Candy *CandyService
	Admin *AdminService
}

func NewServices(s *server.Server) *Services {
	var jobs TaskQueue
	if s.Job != nil {
		jobs = s.Job.Queue
	}

	candy := NewCandyService(s.Ledger, s.Wallet, s.Config.Ledger.Identity, jobs)
	if s.Job != nil {
		s.Job.InitHandlers(candy)
	}

	return &Services{
		Candy: candy,
		Admin: NewAdminService(s.CA, s.Wallet, AdminSettings{
			AdminID:     s.Config.CA.AdminID,
			AdminSecret: s.Config.CA.AdminSecret,
			Affiliation: s.Config.CA.Affiliation,
			MSPID:       s.Config.Ledger.MSPID,
		}),
	}
}
