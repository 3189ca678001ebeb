// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when one exists), loads them into structured Go types, and validates
// that required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Start from in-code defaults so a bare `go run` serves on :8080.
//   - Map CANDYCHAIN_ env vars into the Config structs.
//   - Honour the conventional bare PORT variable.
//   - Validate required values so the app fails fast on bad config.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it is loaded into the
	// process environment before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read with the CANDYCHAIN_ prefix. A double underscore
	separates nesting levels, so

		CANDYCHAIN_SERVER__READ_TIMEOUT -> server.read_timeout -> Config.Server.ReadTimeout

	Single underscores stay part of the key name.
*/

const (
	envPrefix = "CANDYCHAIN_"

	// ServiceName tags logs, traces and APM dashboards.
	ServiceName = "candychain"
)

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Ledger        LedgerConfig         `koanf:"ledger" validate:"required"`
	CA            CAConfig             `koanf:"ca" validate:"required"`
	Wallet        WalletConfig         `koanf:"wallet" validate:"required"`
	Database      DatabaseConfig       `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis"`
	Jobs          JobsConfig           `koanf:"jobs"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are seconds; AdminRateLimit is requests per second per client
// on the enrollment routes, 0 to disable.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	StaticDir          string   `koanf:"static_dir" validate:"required"`
	AdminRateLimit     float64  `koanf:"admin_rate_limit" validate:"min=0"`
}

// LedgerDriver selects the Contract implementation.
type LedgerDriver string

const (
	LedgerDriverMemory LedgerDriver = "memory"
	LedgerDriverFabric LedgerDriver = "fabric"
)

// LedgerConfig points the gateway at a peer and a deployed chaincode.
//
// FailureStatus is the HTTP status written when a ledger collaborator
// reports an error on the error-first routes. 200 keeps the historical
// behaviour where only the body shape tells success from failure.
type LedgerConfig struct {
	Driver          LedgerDriver `koanf:"driver" validate:"required,oneof=memory fabric"`
	PeerEndpoint    string       `koanf:"peer_endpoint" validate:"required_if=Driver fabric"`
	GatewayPeer     string       `koanf:"gateway_peer"`
	TLSCertPath     string       `koanf:"tls_cert_path"`
	Channel         string       `koanf:"channel" validate:"required"`
	Chaincode       string       `koanf:"chaincode" validate:"required"`
	MSPID           string       `koanf:"msp_id" validate:"required"`
	Identity        string       `koanf:"identity" validate:"required"`
	EvaluateTimeout int          `koanf:"evaluate_timeout" validate:"min=1"`
	SubmitTimeout   int          `koanf:"submit_timeout" validate:"min=1"`
	FailureStatus   int          `koanf:"failure_status" validate:"min=200,max=599"`
}

// CAConfig contains Fabric CA connection details and the bootstrap
// registrar credentials used by enrollAdmin.
type CAConfig struct {
	URL         string `koanf:"url" validate:"required,url"`
	Name        string `koanf:"name"`
	TLSCertPath string `koanf:"tls_cert_path"`
	AdminID     string `koanf:"admin_id" validate:"required"`
	AdminSecret string `koanf:"admin_secret" validate:"required"`
	Affiliation string `koanf:"affiliation"`
	Timeout     int    `koanf:"timeout" validate:"min=1"`
}

// WalletDriver selects the identity Store implementation.
type WalletDriver string

const (
	WalletDriverFile     WalletDriver = "file"
	WalletDriverPostgres WalletDriver = "postgres"
	WalletDriverRedis    WalletDriver = "redis"
)

// WalletConfig tells where enrolled identities are kept.
type WalletConfig struct {
	Driver WalletDriver `koanf:"driver" validate:"required,oneof=file postgres redis"`
	Path   string       `koanf:"path" validate:"required_if=Driver file"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Only required when the wallet driver is postgres.
type DatabaseConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port"; empty disables Redis entirely.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// JobsConfig toggles the asynq worker. It needs Redis.
type JobsConfig struct {
	Enabled     bool `koanf:"enabled"`
	Concurrency int  `koanf:"concurrency"`
}

// Default returns the configuration used when no variable overrides it.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			StaticDir:          "public",
			AdminRateLimit:     5,
		},
		Ledger: LedgerConfig{
			Driver:          LedgerDriverMemory,
			Channel:         "mychannel",
			Chaincode:       "candy",
			MSPID:           "Org1MSP",
			Identity:        "user1",
			EvaluateTimeout: 5,
			SubmitTimeout:   15,
			FailureStatus:   200,
		},
		CA: CAConfig{
			URL:         "https://localhost:7054",
			Name:        "ca.example.com",
			AdminID:     "admin",
			AdminSecret: "adminpw",
			Affiliation: "org1.department1",
			Timeout:     10,
		},
		Wallet: WalletConfig{
			Driver: WalletDriverFile,
			Path:   "wallet",
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 300,
			ConnMaxIdleTime: 60,
		},
		Jobs: JobsConfig{
			Concurrency: 4,
		},
	}
}

// envKey turns CANDYCHAIN_LEDGER__PEER_ENDPOINT into ledger.peer_endpoint.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// LoadConfig loads configuration from environment variables on top of
// Default(), validates it, applies observability defaults, and returns it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Unmarshal onto the defaults; keys absent from the environment keep
	// their default value.
	mainConfig := Default()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		mainConfig.Server.Port = port
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate checks struct tags, cross-block requirements and the
// observability block. It injects default observability when missing.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Wallet.Driver == WalletDriverPostgres && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("wallet driver postgres requires database.host and database.name")
	}

	if (c.Wallet.Driver == WalletDriverRedis || c.Jobs.Enabled) && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required by the redis wallet and background jobs")
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary block.
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}
