package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"scriptorium/internal/auth"
	"scriptorium/internal/config"
	"scriptorium/internal/handler"
	"scriptorium/internal/mediatypes"
	"scriptorium/internal/metrics"
	"scriptorium/internal/middleware"
	"scriptorium/internal/repository/postgres"
	postgresLibrary "scriptorium/internal/repository/postgres/library"
	serviceLibrary "scriptorium/internal/service/library"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Access token verification (JWKS or shared secret)
	verifier, err := auth.NewVerifier(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer verifier.Close()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.ApplySchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	refRepo := postgresLibrary.NewReferenceRepository(repoConfig)
	ownerRepo := postgresLibrary.NewOwnershipRepository(repoConfig)
	projectRepo := postgresLibrary.NewProjectRepository(repoConfig)
	docRepo := postgresLibrary.NewDocumentRepository(repoConfig)
	revisionRepo := postgresLibrary.NewRevisionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector("scriptorium")
	}

	mediaTypes, err := mediatypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load media types: %v", err)
	}

	// Create library services
	validator := serviceLibrary.NewProjectValidator(projectRepo)
	registry := serviceLibrary.NewOwnershipRegistry(refRepo, ownerRepo, txManager, collector, logger)
	ledger := serviceLibrary.NewRevisionLedger(revisionRepo, docRepo, txManager, cfg.RevisionLimit, collector, logger)
	lookup := serviceLibrary.NewResilientLookup(
		serviceLibrary.DegradedLookup{},
		serviceLibrary.BreakerConfigFrom(cfg),
		collector,
		logger,
	)

	refService := serviceLibrary.NewReferenceService(refRepo, registry, lookup, validator, mediaTypes, txManager, logger)
	docService := serviceLibrary.NewDocumentService(docRepo, ledger, txManager, validator, collector, logger)
	projectService := serviceLibrary.NewProjectService(projectRepo, logger)

	// Create handlers
	healthHandler := handler.NewHealthHandler(pool, logger)
	refHandler := handler.NewReferenceHandler(refService, cfg.MaxUploadBytes, logger)
	projectHandler := handler.NewProjectHandler(projectService, refService, logger)
	docHandler := handler.NewDocumentHandler(docService, cfg.MaxUploadBytes, logger)

	logger.Info("services initialized", "revision_limit", ledger.Limit())

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	if collector != nil {
		mux.Handle("GET /metrics", collector.Handler())
	}

	// Reference routes
	mux.HandleFunc("POST /api/references", refHandler.CreateReference)
	mux.HandleFunc("POST /api/references/import", refHandler.ImportReference)
	mux.HandleFunc("GET /api/references", refHandler.ListReferences)
	mux.HandleFunc("GET /api/references/{id}", refHandler.GetReference)
	mux.HandleFunc("PATCH /api/references/{id}", refHandler.UpdateReference)
	mux.HandleFunc("DELETE /api/references/{id}", refHandler.DeleteReference)
	mux.HandleFunc("GET /api/references/{id}/file", refHandler.GetReferenceFile)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/references", projectHandler.ListProjectReferences)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.PatchDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/revisions", docHandler.ListRevisions)
	mux.HandleFunc("POST /api/documents/{id}/restore/{revisionID}", docHandler.RestoreRevision)
	mux.HandleFunc("GET /api/documents/{id}/pdf", docHandler.GetPDF)
	mux.HandleFunc("GET /api/documents/{id}/image", docHandler.GetImage)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → RequestLogger → Metrics → Routes
	// Metrics and RequestLogger sit inside Auth so they see the routed request
	h = middleware.Metrics(collector)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.AuthMiddleware(auth.NewTokenResolver(verifier))(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  60 * time.Second, // uploads can be large
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
