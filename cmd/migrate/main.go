package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"scriptorium/internal/config"
	"scriptorium/internal/mediatypes"
	"scriptorium/internal/repository/postgres"
	postgresLibrary "scriptorium/internal/repository/postgres/library"
	serviceLibrary "scriptorium/internal/service/library"

	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before applying the schema (fresh start)")
	seedOwner := flag.String("seed-owner", "", "Seed a sample library owned by this actor ID")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *seedOwner != "") {
		log.Fatalf("BLOCKED: -drop-tables and -seed-owner are not allowed in the prod environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Printf("Dropping all tables (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
		if err := postgres.DropTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.ApplySchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("Schema ready")

	if *seedOwner == "" {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	refRepo := postgresLibrary.NewReferenceRepository(repoConfig)
	projectRepo := postgresLibrary.NewProjectRepository(repoConfig)
	docRepo := postgresLibrary.NewDocumentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	mediaTypes, err := mediatypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load media types: %v", err)
	}

	validator := serviceLibrary.NewProjectValidator(projectRepo)
	registry := serviceLibrary.NewOwnershipRegistry(
		refRepo, postgresLibrary.NewOwnershipRepository(repoConfig), txManager, nil, logger)
	ledger := serviceLibrary.NewRevisionLedger(
		postgresLibrary.NewRevisionRepository(repoConfig), docRepo, txManager, cfg.RevisionLimit, nil, logger)

	s := &seeder{
		projects:   serviceLibrary.NewProjectService(projectRepo, logger),
		references: serviceLibrary.NewReferenceService(refRepo, registry, serviceLibrary.DegradedLookup{}, validator, mediaTypes, txManager, logger),
		documents:  serviceLibrary.NewDocumentService(docRepo, ledger, txManager, validator, nil, logger),
	}

	log.Printf("Seeding sample library for %s", *seedOwner)
	if err := s.seed(ctx, *seedOwner); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Println("Seeding complete")
}
