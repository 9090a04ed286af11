package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	"scriptorium/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, owner_id, project_id, text, label, description, notes, position,
	pdf IS NOT NULL, image IS NOT NULL, created_at, updated_at`

// attachmentColumns maps attachment kinds to their columns
var attachmentColumns = map[models.AttachmentKind]string{
	models.AttachmentPDF:   "pdf",
	models.AttachmentImage: "image",
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ProjectID,
		&doc.Text,
		&doc.Label,
		&doc.Description,
		&doc.Notes,
		&doc.Position,
		&doc.HasPDF,
		&doc.HasImage,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) libraryRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, project_id, text, label, description, notes, position, pdf, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.OwnerID,
		doc.ProjectID,
		doc.Text,
		doc.Label,
		doc.Description,
		doc.Notes,
		doc.Position,
		doc.PDF,
		doc.Image,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project %v: %w", doc.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	doc.HasPDF = doc.PDF != nil
	doc.HasImage = doc.Image != nil
	return nil
}

// GetByID retrieves a document by ID, scoped to its owner
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND owner_id = $2
	`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// Lock takes a row lock on the document
func (r *PostgresDocumentRepository) Lock(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, r.tables.Documents)

	var locked string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id, ownerID).Scan(&locked); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("lock document: %w", err)
	}

	return nil
}

// List retrieves an owner's documents ordered by position, then insertion
func (r *PostgresDocumentRepository) List(ctx context.Context, ownerID string, projectID *string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1`, documentColumns, r.tables.Documents)
	args := []any{ownerID}

	if projectID != nil {
		query += ` AND project_id = $2`
		args = append(args, *projectID)
	}
	query += ` ORDER BY position, created_at, id`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// Update writes document metadata
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET label = $1, description = $2, notes = $3, position = $4, project_id = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		doc.Label,
		doc.Description,
		doc.Notes,
		doc.Position,
		doc.ProjectID,
		doc.UpdatedAt,
		doc.ID,
		doc.OwnerID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project %v: %w", doc.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateText replaces a document's text
func (r *PostgresDocumentRepository) UpdateText(ctx context.Context, id string, text *string, updatedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET text = $1, updated_at = $2 WHERE id = $3`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, text, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update document text: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a document; its revisions cascade
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetAttachment returns a document's side payload
func (r *PostgresDocumentRepository) GetAttachment(ctx context.Context, id, ownerID string, kind models.AttachmentKind) ([]byte, error) {
	column, ok := attachmentColumns[kind]
	if !ok {
		return nil, fmt.Errorf("attachment kind %q: %w", kind, domain.ErrValidation)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND owner_id = $2`, column, r.tables.Documents)

	var data []byte
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id, ownerID).Scan(&data); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document %s: %w", column, err)
	}

	if data == nil {
		return nil, fmt.Errorf("document %s has no %s: %w", id, column, domain.ErrNotFound)
	}

	return data, nil
}
