package wallet

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/deppfellow/candychain/internal/config"
)

// Open returns the Store selected by cfg.Driver. The postgres and redis
// drivers need the matching client; pass nil for the ones not in use.
func Open(cfg config.WalletConfig, pool *pgxpool.Pool, rdb redis.UniversalClient) (Store, error) {
	switch cfg.Driver {
	case config.WalletDriverFile, "":
		return NewFileStore(cfg.Path)
	case config.WalletDriverPostgres:
		if pool == nil {
			return nil, errors.New("postgres wallet requires a database connection")
		}
		return NewPostgresStore(pool), nil
	case config.WalletDriverRedis:
		if rdb == nil {
			return nil, errors.New("redis wallet requires a redis client")
		}
		return NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown wallet driver %q", cfg.Driver)
	}
}
