package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"scriptorium/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Projects          string
	References        string
	ReferenceOwners   string
	ReferenceProjects string
	Documents         string
	Revisions         string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Projects:          fmt.Sprintf("%sprojects", prefix),
		References:        fmt.Sprintf("%sbib_references", prefix),
		ReferenceOwners:   fmt.Sprintf("%sbib_reference_owners", prefix),
		ReferenceProjects: fmt.Sprintf("%sbib_reference_projects", prefix),
		Documents:         fmt.Sprintf("%sdocuments", prefix),
		Revisions:         fmt.Sprintf("%sdocument_revisions", prefix),
	}
}

// All returns every table, children before parents
func (t *TableNames) All() []string {
	return []string{
		t.Revisions,
		t.Documents,
		t.ReferenceProjects,
		t.ReferenceOwners,
		t.References,
		t.Projects,
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// PgBouncer in transaction pooling mode (port 6543) does not support prepared
// statements, so that port switches to QueryExecModeCacheDescribe unless the
// connection string sets default_query_exec_mode itself.
//
// Table prefixes are interpolated into SQL before it reaches the server, so
// each environment gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or pool when there is none.
// Repositories call this so they take part in any surrounding transaction.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
