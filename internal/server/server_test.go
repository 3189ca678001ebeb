package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/wallet"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Wallet.Path = filepath.Join(t.TempDir(), "wallet")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_LocalDefaults(t *testing.T) {
	logger := zerolog.Nop()
	s, err := New(testConfig(t), &logger, nil)
	require.NoError(t, err)

	assert.IsType(t, &ledger.MemoryGateway{}, s.Ledger)
	assert.IsType(t, &wallet.FileStore{}, s.Wallet)
	assert.NotNil(t, s.CA)
	assert.Nil(t, s.DB)
	assert.Nil(t, s.Redis)
	assert.Nil(t, s.Job)

	assert.NoError(t, s.StartJobs())
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestNew_FabricGatewayIsLazy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Driver = config.LedgerDriverFabric
	cfg.Ledger.PeerEndpoint = "localhost:7051"

	logger := zerolog.Nop()
	s, err := New(cfg, &logger, nil)
	require.NoError(t, err)
	assert.IsType(t, &ledger.FabricGateway{}, s.Ledger)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestStart_RequiresSetup(t *testing.T) {
	logger := zerolog.Nop()
	s, err := New(testConfig(t), &logger, nil)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	assert.EqualError(t, s.Start(), "HTTP server not initialized")
}
