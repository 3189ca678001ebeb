package ledger

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/wallet"
)

func selfSigned(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "user1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
}

func fabricConfig() config.LedgerConfig {
	cfg := config.Default().Ledger
	cfg.Driver = config.LedgerDriverFabric
	cfg.PeerEndpoint = "localhost:7051"
	return cfg
}

func TestFabricGateway_ConnectBuildsSession(t *testing.T) {
	gw, err := NewFabricGateway(fabricConfig())
	require.NoError(t, err)
	defer gw.Close()

	certPEM, keyPEM := selfSigned(t)
	session, err := gw.Connect(context.Background(), wallet.NewX509Identity("Org1MSP", string(certPEM), string(keyPEM)))
	require.NoError(t, err)
	assert.NoError(t, session.Close())
}

func TestFabricGateway_ConnectRejectsBadIdentity(t *testing.T) {
	gw, err := NewFabricGateway(fabricConfig())
	require.NoError(t, err)
	defer gw.Close()

	ctx := context.Background()
	certPEM, _ := selfSigned(t)

	_, err = gw.Connect(ctx, nil)
	assert.Error(t, err)

	_, err = gw.Connect(ctx, wallet.NewX509Identity("Org1MSP", "not a cert", "not a key"))
	assert.ErrorContains(t, err, "certificate")

	_, err = gw.Connect(ctx, wallet.NewX509Identity("Org1MSP", string(certPEM), "not a key"))
	assert.ErrorContains(t, err, "private key")
}

func TestTransportCredentials(t *testing.T) {
	cfg := fabricConfig()

	creds, err := transportCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "insecure", creds.Info().SecurityProtocol)

	certPEM, _ := selfSigned(t)
	path := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(path, certPEM, 0o600))

	cfg.TLSCertPath = path
	cfg.GatewayPeer = "peer0.org1.example.com"
	creds, err = transportCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	cfg.TLSCertPath = filepath.Join(t.TempDir(), "missing.crt")
	_, err = transportCredentials(cfg)
	assert.Error(t, err)
}

func TestDescribeError_IncludesPeerDetails(t *testing.T) {
	st, err := status.New(codes.Aborted, "failed to endorse transaction").WithDetails(&gateway.ErrorDetail{
		Address: "peer0.org1.example.com:7051",
		MspId:   "Org1MSP",
		Message: "chaincode response 500, Incorrect number of arguments. Expecting 1",
	})
	require.NoError(t, err)

	described := describeError(st.Err())
	assert.ErrorContains(t, described, "failed to endorse transaction")
	assert.ErrorContains(t, described, "peer0.org1.example.com:7051 (Org1MSP): chaincode response 500, Incorrect number of arguments. Expecting 1")
}

func TestDescribeError_PlainError(t *testing.T) {
	plain := status.Error(codes.Unavailable, "connection refused")
	assert.Same(t, plain, describeError(plain))
}
