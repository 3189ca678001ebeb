// Package wallet stores the X.509 identities enrolled with the Fabric CA.
//
// An identity is persisted in the same JSON shape the Fabric SDKs use for
// their wallets, so a wallet directory written here can be shared with
// other Fabric tooling:
//
//	{"type":"X.509","mspId":"Org1MSP","credentials":{"certificate":"...","privateKey":"..."},"version":1}
package wallet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// X509Type is the only identity type this wallet understands.
const X509Type = "X.509"

var (
	// ErrNotFound is returned when no identity is stored under a label.
	ErrNotFound = errors.New("identity not found")

	// ErrExists is returned by Put when the label is already taken.
	ErrExists = errors.New("identity already exists")

	// ErrInvalidLabel is returned for labels that cannot be used as a key.
	ErrInvalidLabel = errors.New("invalid identity label")
)

// Credentials holds the PEM encoded certificate and private key.
type Credentials struct {
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"privateKey"`
}

// Identity is an enrolled X.509 identity.
type Identity struct {
	Type        string      `json:"type"`
	MSPID       string      `json:"mspId"`
	Credentials Credentials `json:"credentials"`
	Version     int         `json:"version"`
}

// NewX509Identity builds an identity from PEM material.
func NewX509Identity(mspID, certificatePEM, privateKeyPEM string) *Identity {
	return &Identity{
		Type:  X509Type,
		MSPID: mspID,
		Credentials: Credentials{
			Certificate: certificatePEM,
			PrivateKey:  privateKeyPEM,
		},
		Version: 1,
	}
}

// Store is implemented by every wallet backend.
//
// Put never overwrites; remove the identity first to re-enroll it.
type Store interface {
	Get(ctx context.Context, label string) (*Identity, error)
	Put(ctx context.Context, label string, id *Identity) error
	Exists(ctx context.Context, label string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, label string) error
}

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

// ValidateLabel rejects labels that are empty, too long, or could escape a
// file wallet directory.
func ValidateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func validateIdentity(id *Identity) error {
	if id == nil {
		return errors.New("identity is nil")
	}
	if id.Type != X509Type {
		return fmt.Errorf("unsupported identity type %q", id.Type)
	}
	if id.MSPID == "" || id.Credentials.Certificate == "" || id.Credentials.PrivateKey == "" {
		return errors.New("identity is missing mspId or credentials")
	}
	return nil
}
