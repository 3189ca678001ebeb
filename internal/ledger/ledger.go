// Package ledger talks to the candy chaincode.
//
// A Gateway opens a Session for one wallet identity; the Session evaluates
// (query only, nothing committed) or submits (endorsed and committed)
// chaincode transactions. Two gateways exist: FabricGateway for a real
// peer and MemoryGateway, an in-process rendition of the chaincode used
// for local runs and tests.
package ledger

import (
	"context"

	"github.com/deppfellow/candychain/internal/wallet"
)

// Chaincode transaction names.
const (
	FnInitLedger       = "initLedger"
	FnQueryCandy       = "queryCandy"
	FnCreateCandy      = "createCandy"
	FnQueryAllCandies  = "queryAllCandies"
	FnChangeCandyOwner = "changeCandyOwner"
)

// Candy is the world-state record stored under a CANDY<n> key.
type Candy struct {
	Name    string `json:"name"`
	Texture string `json:"texture"`
	Colour  string `json:"colour"`
	Owner   string `json:"owner"`
}

// QueryResult is one element of the queryAllCandies response.
type QueryResult struct {
	Key    string `json:"Key"`
	Record Candy  `json:"Record"`
}

// Contract runs chaincode transactions.
type Contract interface {
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
	Submit(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Session is a Contract bound to one identity. Close releases it.
type Session interface {
	Contract
	Close() error
}

// Gateway opens sessions and reports whether the ledger is reachable.
type Gateway interface {
	Connect(ctx context.Context, id *wallet.Identity) (Session, error)
	Ping(ctx context.Context) error
	Close() error
}
