// Package server defines the core Server struct that composes the app's main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the ledger gateway, identity wallet and Fabric CA client
//   - database pool and redis client, when the wallet or jobs need them
//   - background job worker server (asynq), when enabled
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deppfellow/candychain/internal/ca"
	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/database"
	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/lib/job"
	loggerPkg "github.com/deppfellow/candychain/internal/logger"
	"github.com/deppfellow/candychain/internal/wallet"
)

// Server is the application container that holds shared resources.
//
// DB, Redis and Job are nil unless the configuration calls for them.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	DB    *database.Database
	Redis *redis.Client
	Job   *job.JobService

	Ledger ledger.Gateway
	Wallet wallet.Store
	CA     *ca.Client

	httpServer *http.Server
}

// New constructs a Server and initializes its dependencies. It does not
// start serving; see SetupHTTPServer, StartJobs and Start.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}

	if cfg.Wallet.Driver == config.WalletDriverPostgres {
		db, err := database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.DB = db

		if err := database.Migrate(context.Background(), logger, db.Pool); err != nil {
			s.closeStores()
			return nil, err
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis = newRedisClient(cfg, logger, loggerService)
	}

	var rdb redis.UniversalClient
	if s.Redis != nil {
		rdb = s.Redis
	}
	store, err := wallet.Open(cfg.Wallet, s.pool(), rdb)
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}
	s.Wallet = store

	caClient, err := ca.New(cfg.CA)
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to initialize CA client: %w", err)
	}
	s.CA = caClient

	gateway, err := newGateway(cfg.Ledger)
	if err != nil {
		s.closeStores()
		return nil, err
	}
	s.Ledger = gateway

	if cfg.Jobs.Enabled {
		s.Job = job.NewJobService(logger, cfg)
	}

	logger.Info().
		Str("ledger", string(cfg.Ledger.Driver)).
		Str("wallet", string(cfg.Wallet.Driver)).
		Bool("jobs", s.Job != nil).
		Msg("server dependencies ready")

	return s, nil
}

func newGateway(cfg config.LedgerConfig) (ledger.Gateway, error) {
	switch cfg.Driver {
	case config.LedgerDriverFabric:
		gw, err := ledger.NewFabricGateway(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fabric gateway: %w", err)
		}
		return gw, nil
	default:
		return ledger.NewMemoryGateway(), nil
	}
}

// newRedisClient builds the client and pings it. A failed ping is logged,
// not fatal: Redis may come up after the API.
func newRedisClient(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	if loggerService.GetApplication() != nil {
		client.AddHook(nrredis.NewHook(client.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis, continuing")
	}

	return client
}

func (s *Server) pool() *pgxpool.Pool {
	if s.DB == nil {
		return nil
	}
	return s.DB.Pool
}

// StartJobs starts the background workers, if enabled. Task handlers must
// be registered first.
func (s *Server) StartJobs() error {
	if s.Job == nil {
		return nil
	}
	return s.Job.Start()
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until Shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("app started")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then releases every dependency.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close ledger gateway: %w", err))
		}
	}

	errs = append(errs, s.closeStores())

	return errors.Join(errs...)
}

func (s *Server) closeStores() error {
	var errs []error

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
