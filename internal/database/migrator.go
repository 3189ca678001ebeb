package database

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// versionTable records which embedded migrations have run.
const versionTable = "schema_version"

//go:embed migrations/*.sql
var migrations embed.FS

func loadMigrator(ctx context.Context, conn *pgxpool.Conn) (*migrate.Migrator, error) {
	m, err := migrate.NewMigrator(ctx, conn.Conn(), versionTable)
	if err != nil {
		return nil, errors.Wrap(err, "constructing migrator")
	}

	files, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "opening embedded migrations")
	}
	if err := m.LoadMigrations(files); err != nil {
		return nil, errors.Wrap(err, "loading migrations")
	}
	return m, nil
}

// Migrate brings the identities schema to the latest embedded version on
// one connection borrowed from pool.
func Migrate(ctx context.Context, logger *zerolog.Logger, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "acquiring connection for migrations")
	}
	defer conn.Release()

	m, err := loadMigrator(ctx, conn)
	if err != nil {
		return err
	}

	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "reading schema version")
	}

	latest := int32(len(m.Migrations))
	if current == latest {
		logger.Info().Int32("version", latest).Msg("wallet schema up to date")
		return nil
	}

	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info().
			Int32("sequence", sequence).
			Str("migration", name).
			Str("direction", direction).
			Msg("applying migration")
	}

	if err := m.Migrate(ctx); err != nil {
		return errors.Wrap(err, "migrating wallet schema")
	}

	logger.Info().Int32("from", current).Int32("to", latest).Msg("wallet schema migrated")
	return nil
}
