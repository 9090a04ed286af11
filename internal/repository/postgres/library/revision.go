package library

import (
	"context"
	"fmt"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	"scriptorium/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRevisionRepository implements the RevisionRepository interface
type PostgresRevisionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(config *postgres.RepositoryConfig) libraryRepo.RevisionRepository {
	return &PostgresRevisionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends a revision
func (r *PostgresRevisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, text, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, seq, created_at
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rev.DocumentID, rev.Text, rev.CreatedAt).
		Scan(&rev.ID, &rev.Seq, &rev.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", rev.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create revision: %w", err)
	}

	return nil
}

// ListByDocument returns a document's revisions, oldest first
func (r *PostgresRevisionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, text, created_at, seq
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at, seq
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	revisions := []models.Revision{}
	for rows.Next() {
		var rev models.Revision
		if err := rows.Scan(&rev.ID, &rev.DocumentID, &rev.Text, &rev.CreatedAt, &rev.Seq); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	return revisions, nil
}

// GetByID retrieves a revision of the given document
func (r *PostgresRevisionRepository) GetByID(ctx context.Context, id, documentID string) (*models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, text, created_at, seq
		FROM %s
		WHERE id = $1 AND document_id = $2
	`, r.tables.Revisions)

	var rev models.Revision
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, documentID).
		Scan(&rev.ID, &rev.DocumentID, &rev.Text, &rev.CreatedAt, &rev.Seq)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get revision: %w", err)
	}

	return &rev, nil
}

// Trim keeps the newest keep revisions of a document
func (r *PostgresRevisionRepository) Trim(ctx context.Context, documentID string, keep int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE document_id = $1 AND id NOT IN (
			SELECT id FROM %[1]s
			WHERE document_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		)
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, documentID, keep)
	if err != nil {
		return 0, fmt.Errorf("trim revisions: %w", err)
	}

	return result.RowsAffected(), nil
}
