package library

import (
	"context"
	"fmt"

	"scriptorium/internal/domain"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	"scriptorium/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOwnershipRepository implements the OwnershipRepository interface
type PostgresOwnershipRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewOwnershipRepository creates a new ownership repository
func NewOwnershipRepository(config *postgres.RepositoryConfig) libraryRepo.OwnershipRepository {
	return &PostgresOwnershipRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Add records an ownership edge
func (r *PostgresOwnershipRepository) Add(ctx context.Context, referenceID, ownerID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (reference_id, owner_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.ReferenceOwners)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, referenceID, ownerID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("reference %s: %w", referenceID, domain.ErrNotFound)
		}
		return fmt.Errorf("add reference owner: %w", err)
	}

	return nil
}

// Exists reports whether an ownership edge exists
func (r *PostgresOwnershipRepository) Exists(ctx context.Context, referenceID, ownerID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE reference_id = $1 AND owner_id = $2)
	`, r.tables.ReferenceOwners)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, referenceID, ownerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reference owner: %w", err)
	}

	return exists, nil
}

// Remove deletes an ownership edge
func (r *PostgresOwnershipRepository) Remove(ctx context.Context, referenceID, ownerID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE reference_id = $1 AND owner_id = $2`, r.tables.ReferenceOwners)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, referenceID, ownerID)
	if err != nil {
		return false, fmt.Errorf("remove reference owner: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Count returns how many owners a reference has
func (r *PostgresOwnershipRepository) Count(ctx context.Context, referenceID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE reference_id = $1`, r.tables.ReferenceOwners)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, referenceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reference owners: %w", err)
	}

	return count, nil
}
