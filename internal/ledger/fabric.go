package ledger

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/wallet"
)

// FabricGateway shares one gRPC connection to the gateway peer between
// all sessions; each session signs with its own identity.
type FabricGateway struct {
	conn *grpc.ClientConn
	cfg  config.LedgerConfig
}

// NewFabricGateway prepares the gRPC client. No connection is made until
// the first call or Ping.
func NewFabricGateway(cfg config.LedgerConfig) (*FabricGateway, error) {
	creds, err := transportCredentials(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", cfg.PeerEndpoint, err)
	}

	return &FabricGateway{conn: conn, cfg: cfg}, nil
}

func transportCredentials(cfg config.LedgerConfig) (credentials.TransportCredentials, error) {
	if cfg.TLSCertPath == "" {
		return insecure.NewCredentials(), nil
	}

	pem, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read peer TLS certificate: %w", err)
	}

	cert, err := identity.CertificateFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer TLS certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return credentials.NewClientTLSFromCert(pool, cfg.GatewayPeer), nil
}

func (g *FabricGateway) Connect(_ context.Context, id *wallet.Identity) (Session, error) {
	if id == nil {
		return nil, errors.New("ledger session requires an identity")
	}

	cert, err := identity.CertificateFromPEM([]byte(id.Credentials.Certificate))
	if err != nil {
		return nil, fmt.Errorf("invalid identity certificate: %w", err)
	}

	signer, err := identity.NewX509Identity(id.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("invalid identity: %w", err)
	}

	key, err := identity.PrivateKeyFromPEM([]byte(id.Credentials.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid identity private key: %w", err)
	}

	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("unsupported identity private key: %w", err)
	}

	gw, err := client.Connect(
		signer,
		client.WithSign(sign),
		client.WithClientConnection(g.conn),
		client.WithEvaluateTimeout(time.Duration(g.cfg.EvaluateTimeout)*time.Second),
		client.WithEndorseTimeout(time.Duration(g.cfg.SubmitTimeout)*time.Second),
		client.WithSubmitTimeout(time.Duration(g.cfg.SubmitTimeout)*time.Second),
		client.WithCommitStatusTimeout(time.Duration(g.cfg.SubmitTimeout)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	contract := gw.GetNetwork(g.cfg.Channel).GetContract(g.cfg.Chaincode)
	return &fabricSession{gw: gw, contract: contract}, nil
}

// Ping kicks the connection out of idle and fails while it cannot reach
// the peer.
func (g *FabricGateway) Ping(ctx context.Context) error {
	g.conn.Connect()

	for {
		state := g.conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("gateway connection is shut down")
		}

		if !g.conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("gateway peer %s unreachable: %s", g.cfg.PeerEndpoint, state)
		}
	}
}

func (g *FabricGateway) Close() error {
	return g.conn.Close()
}

type fabricSession struct {
	gw       *client.Gateway
	contract *client.Contract
}

func (s *fabricSession) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := s.contract.EvaluateWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, describeError(err)
	}
	return result, nil
}

func (s *fabricSession) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := s.contract.SubmitWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, describeError(err)
	}
	return result, nil
}

func (s *fabricSession) Close() error {
	return s.gw.Close()
}

// describeError appends the per-peer messages carried in the gRPC status,
// which is where the chaincode's own error text ends up.
func describeError(err error) error {
	var messages []string
	for _, detail := range status.Convert(err).Details() {
		if d, ok := detail.(*gateway.ErrorDetail); ok {
			messages = append(messages, fmt.Sprintf("%s (%s): %s", d.GetAddress(), d.GetMspId(), d.GetMessage()))
		}
	}

	var commitErr *client.CommitError
	if errors.As(err, &commitErr) {
		return fmt.Errorf("transaction %s failed to commit with status %d: %w", commitErr.TransactionID, int32(commitErr.Code), err)
	}

	if len(messages) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, strings.Join(messages, "; "))
}
