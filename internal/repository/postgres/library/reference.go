package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	"scriptorium/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// referenceColumns is the projection shared by every reference read.
// The payload itself is only read by GetFile.
const referenceColumns = `r.id, r.title, r.authors, r.journal, r.year, r.filename, r.media_type, r.digest,
	COALESCE(octet_length(r.payload), 0), r.external_id, r.doi, r.abstract, r.keywords,
	r.publication_date, r.url, r.citation, r.created_at, r.updated_at`

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanReference(row scanner) (*models.Reference, error) {
	var ref models.Reference
	err := row.Scan(
		&ref.ID,
		&ref.Title,
		&ref.Authors,
		&ref.Journal,
		&ref.Year,
		&ref.Filename,
		&ref.MediaType,
		&ref.Digest,
		&ref.Size,
		&ref.ExternalID,
		&ref.DOI,
		&ref.Abstract,
		&ref.Keywords,
		&ref.PublicationDate,
		&ref.URL,
		&ref.Citation,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// PostgresReferenceRepository implements the ReferenceRepository interface
type PostgresReferenceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(config *postgres.RepositoryConfig) libraryRepo.ReferenceRepository {
	return &PostgresReferenceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a reference. A digest that is already stored is reported as
// a ConflictError carrying the existing reference ID; the insert itself is a
// no-op so the surrounding transaction stays usable.
func (r *PostgresReferenceRepository) Create(ctx context.Context, ref *models.Reference) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, authors, journal, year, filename, media_type, digest, payload,
			external_id, doi, abstract, keywords, publication_date, url, citation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (digest) DO NOTHING
		RETURNING id, created_at, updated_at
	`, r.tables.References)

	keywords := ref.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		ref.Title,
		ref.Authors,
		ref.Journal,
		ref.Year,
		ref.Filename,
		ref.MediaType,
		ref.Digest,
		ref.Payload,
		ref.ExternalID,
		ref.DOI,
		ref.Abstract,
		keywords,
		ref.PublicationDate,
		ref.URL,
		ref.Citation,
		ref.CreatedAt,
		ref.UpdatedAt,
	).Scan(&ref.ID, &ref.CreatedAt, &ref.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) && ref.Digest != nil {
			existing, getErr := r.GetByDigest(ctx, *ref.Digest)
			if getErr != nil {
				return fmt.Errorf("reference with digest %s: %w", *ref.Digest, domain.ErrConflict)
			}
			r.logger.Debug("digest already stored", "digest", *ref.Digest, "existing_id", existing.ID)
			return domain.NewConflictError("reference", existing.ID, "reference with identical content already exists")
		}
		return fmt.Errorf("create reference: %w", err)
	}

	ref.Keywords = keywords
	ref.Size = int64(len(ref.Payload))
	return nil
}

// GetByID retrieves a reference by ID
func (r *PostgresReferenceRepository) GetByID(ctx context.Context, id string) (*models.Reference, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.id = $1`, referenceColumns, r.tables.References)

	executor := postgres.GetExecutor(ctx, r.pool)
	ref, err := scanReference(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("reference %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get reference: %w", err)
	}

	return ref, nil
}

// GetByDigest retrieves the reference holding a content digest
func (r *PostgresReferenceRepository) GetByDigest(ctx context.Context, digest string) (*models.Reference, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.digest = $1`, referenceColumns, r.tables.References)

	executor := postgres.GetExecutor(ctx, r.pool)
	ref, err := scanReference(executor.QueryRow(ctx, query, digest))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("reference with digest %s: %w", digest, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get reference by digest: %w", err)
	}

	return ref, nil
}

// GetByExternalID retrieves the oldest reference linked to an external identifier
func (r *PostgresReferenceRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Reference, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		WHERE r.external_id = $1
		ORDER BY r.created_at, r.id
		LIMIT 1
	`, referenceColumns, r.tables.References)

	executor := postgres.GetExecutor(ctx, r.pool)
	ref, err := scanReference(executor.QueryRow(ctx, query, externalID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("reference with external id %s: %w", externalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get reference by external id: %w", err)
	}

	return ref, nil
}

// GetOwnedByExternalID retrieves the oldest reference linked to an external
// identifier among those the owner holds
func (r *PostgresReferenceRepository) GetOwnedByExternalID(ctx context.Context, ownerID, externalID string) (*models.Reference, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		JOIN %s o ON o.reference_id = r.id
		WHERE o.owner_id = $1 AND r.external_id = $2
		ORDER BY r.created_at, r.id
		LIMIT 1
	`, referenceColumns, r.tables.References, r.tables.ReferenceOwners)

	executor := postgres.GetExecutor(ctx, r.pool)
	ref, err := scanReference(executor.QueryRow(ctx, query, ownerID, externalID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("owned reference with external id %s: %w", externalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get owned reference by external id: %w", err)
	}

	return ref, nil
}

// Lock takes a row lock on the reference until the transaction ends
func (r *PostgresReferenceRepository) Lock(ctx context.Context, id string) error {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 FOR UPDATE`, r.tables.References)

	var locked string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("reference %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("lock reference: %w", err)
	}

	return nil
}

// Update writes the metadata fields of a reference
func (r *PostgresReferenceRepository) Update(ctx context.Context, ref *models.Reference) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, authors = $2, journal = $3, year = $4,
			external_id = $5, doi = $6, abstract = $7, keywords = $8,
			publication_date = $9, url = $10, citation = $11, updated_at = $12
		WHERE id = $13
	`, r.tables.References)

	keywords := ref.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		ref.Title,
		ref.Authors,
		ref.Journal,
		ref.Year,
		ref.ExternalID,
		ref.DOI,
		ref.Abstract,
		keywords,
		ref.PublicationDate,
		ref.URL,
		ref.Citation,
		ref.UpdatedAt,
		ref.ID,
	)
	if err != nil {
		return fmt.Errorf("update reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reference %s: %w", ref.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a reference; ownership edges and project tags cascade
func (r *PostgresReferenceRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.References)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reference %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetFile returns the stored payload with its raw presentation tags
func (r *PostgresReferenceRepository) GetFile(ctx context.Context, id string) (*models.File, error) {
	query := fmt.Sprintf(`SELECT payload, filename, media_type FROM %s WHERE id = $1`, r.tables.References)

	var (
		payload   []byte
		filename  *string
		mediaType *string
	)
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&payload, &filename, &mediaType); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("reference %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get reference file: %w", err)
	}

	if payload == nil {
		return nil, fmt.Errorf("no file content available: %w", domain.ErrNotFound)
	}

	file := &models.File{Data: payload}
	if filename != nil {
		file.Name = *filename
	}
	if mediaType != nil {
		file.MediaType = *mediaType
	}
	return file, nil
}

// ListByOwner returns an owner's references, oldest first
func (r *PostgresReferenceRepository) ListByOwner(ctx context.Context, ownerID string, filter *libraryRepo.ReferenceFilter) ([]models.Reference, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		JOIN %s o ON o.reference_id = r.id
		WHERE o.owner_id = $1
	`, referenceColumns, r.tables.References, r.tables.ReferenceOwners)
	args := []any{ownerID}

	if filter != nil && filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (r.title ILIKE $%d OR r.authors ILIKE $%d OR r.journal ILIKE $%d OR r.year ILIKE $%d)`, n, n, n, n)
	}

	if filter != nil && filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM %s p WHERE p.reference_id = r.id AND p.project_id = $%d)`,
			r.tables.ReferenceProjects, len(args))
	}

	query += ` ORDER BY r.created_at, r.id`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer rows.Close()

	refs := []models.Reference{}
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, *ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}

	return refs, nil
}

// LinkProjects tags a reference with projects
func (r *PostgresReferenceRepository) LinkProjects(ctx context.Context, referenceID string, projectIDs []string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (reference_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.ReferenceProjects)

	executor := postgres.GetExecutor(ctx, r.pool)
	for _, projectID := range projectIDs {
		if _, err := executor.Exec(ctx, query, referenceID, projectID); err != nil {
			if postgres.IsPgForeignKeyError(err) {
				return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
			}
			return fmt.Errorf("link reference to project: %w", err)
		}
	}

	return nil
}

// escapeLike escapes LIKE metacharacters so search text matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
