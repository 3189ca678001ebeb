package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deppfellow/candychain/internal/sqlerr"
)

// PostgresStore keeps identities in the identities table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, label string) (*Identity, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}

	stmt := `
		SELECT type, msp_id, certificate, private_key, version
		FROM identities
		WHERE label = @label
	`

	var id Identity
	err := s.pool.QueryRow(ctx, stmt, pgx.NamedArgs{"label": label}).Scan(
		&id.Type,
		&id.MSPID,
		&id.Credentials.Certificate,
		&id.Credentials.PrivateKey,
		&id.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity %s: %w", label, err)
	}
	return &id, nil
}

func (s *PostgresStore) Put(ctx context.Context, label string, id *Identity) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if err := validateIdentity(id); err != nil {
		return err
	}

	stmt := `
		INSERT INTO identities (label, type, msp_id, certificate, private_key, version)
		VALUES (@label, @type, @msp_id, @certificate, @private_key, @version)
	`

	_, err := s.pool.Exec(ctx, stmt, pgx.NamedArgs{
		"label":       label,
		"type":        id.Type,
		"msp_id":      id.MSPID,
		"certificate": id.Credentials.Certificate,
		"private_key": id.Credentials.PrivateKey,
		"version":     id.Version,
	})
	if sqlerr.ErrCode(err) == sqlerr.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrExists, label)
	}
	if err != nil {
		return fmt.Errorf("failed to store identity %s: %w", label, err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, label string) (bool, error) {
	if err := ValidateLabel(label); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE label = @label)`,
		pgx.NamedArgs{"label": label},
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up identity %s: %w", label, err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT label FROM identities ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect identity labels: %w", err)
	}
	return labels, nil
}

func (s *PostgresStore) Remove(ctx context.Context, label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE label = @label`, pgx.NamedArgs{"label": label})
	if err != nil {
		return fmt.Errorf("failed to remove identity %s: %w", label, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return nil
}
