package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaTemplate string

// Schema renders the DDL for the given table names
func Schema(tables *TableNames) string {
	return strings.NewReplacer(
		"{{projects}}", tables.Projects,
		"{{references}}", tables.References,
		"{{reference_owners}}", tables.ReferenceOwners,
		"{{reference_projects}}", tables.ReferenceProjects,
		"{{documents}}", tables.Documents,
		"{{revisions}}", tables.Revisions,
	).Replace(schemaTemplate)
}

// ApplySchema creates any missing tables and indexes
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, Schema(tables)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DropTables drops every table, children first
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
