package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lexcorpus/internal/auth"
	"lexcorpus/internal/capabilities"
	"lexcorpus/internal/config"
	"lexcorpus/internal/domain/services"
	"lexcorpus/internal/events"
	"lexcorpus/internal/handler"
	"lexcorpus/internal/handler/sse"
	"lexcorpus/internal/jobs"
	"lexcorpus/internal/middleware"
	"lexcorpus/internal/repository/postgres"
	postgresCorpus "lexcorpus/internal/repository/postgres/corpus"
	postgresReview "lexcorpus/internal/repository/postgres/review"
	"lexcorpus/internal/search"
	serviceAuth "lexcorpus/internal/service/auth"
	serviceCorpus "lexcorpus/internal/service/corpus"
	"lexcorpus/internal/service/corpus/converter"
	serviceLLM "lexcorpus/internal/service/llm"
	serviceReview "lexcorpus/internal/service/review"
	"lexcorpus/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWT verifier against the identity provider's JWKS
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresCorpus.NewDocumentRepository(repoConfig)
	projectRepo := postgresCorpus.NewProjectRepository(repoConfig)
	folderRepo := postgresCorpus.NewFolderRepository(repoConfig)
	membershipRepo := postgresCorpus.NewMembershipRepository(repoConfig)
	activityRepo := postgresCorpus.NewActivityRepository(repoConfig)
	templateRepo := postgresReview.NewTemplateRepository(repoConfig)
	tableRepo := postgresReview.NewTableRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Collaborators: content store, retrieval index, push updates
	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}

	indexer := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	defer indexer.Close()

	var (
		publisher   services.EventPublisher = events.NopPublisher{}
		eventSource handler.EventSource
	)
	if cfg.RedisURL != "" {
		redisPublisher, err := events.NewRedisPublisher(cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
		eventSource = events.NewSubscriber(redisPublisher.Client(), logger)
		logger.Info("push updates enabled")
	} else {
		logger.Warn("REDIS_URL not set, push updates disabled")
	}

	// Extraction model
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	provider, modelInfo, err := serviceLLM.NewProviderFactory(cfg).ForModel(cfg.LLMModel)
	if err != nil {
		log.Fatalf("Failed to set up LLM provider: %v", err)
	}
	modelCaps, err := capabilityRegistry.Resolve(modelInfo.Provider, modelInfo.Model)
	if err != nil {
		log.Fatalf("Failed to resolve model capabilities: %v", err)
	}
	llmClient := serviceLLM.NewClient(provider, modelInfo.Model, modelCaps, logger)
	logger.Info("extraction model ready",
		"provider", modelInfo.Provider,
		"model", modelInfo.Model,
		"input_chars", modelCaps.InputChars(),
	)

	// Services
	authorizer := serviceAuth.NewScopeAuthorizer(docRepo, projectRepo, tableRepo)
	activity := serviceCorpus.NewActivityRecorder(activityRepo, logger)
	deps := &serviceCorpus.Deps{
		Documents:   docRepo,
		Projects:    projectRepo,
		Folders:     folderRepo,
		Memberships: membershipRepo,
		TxManager:   txManager,
		Store:       store,
		Indexer:     indexer,
		Publisher:   publisher,
		Activity:    activity,
		Authorizer:  authorizer,
		Converters:  converter.NewRegistry(),
		Logger:      logger,
	}
	quotas := serviceCorpus.Quotas{
		OrgStorageBytes:     cfg.OrgStorageQuotaBytes,
		ProjectStorageBytes: cfg.ProjectStorageQuotaBytes,
	}

	lifecycleService := serviceCorpus.NewLifecycleService(deps)
	ingestion := jobs.NewIngestionPool(lifecycleService, 1024, logger)

	documentService := serviceCorpus.NewDocumentService(deps, ingestion, quotas)
	projectService := serviceCorpus.NewProjectService(deps, quotas)
	folderService := serviceCorpus.NewFolderService(deps)
	duplicateService := serviceCorpus.NewDuplicateService(membershipRepo, docRepo, store, authorizer, logger)
	adminService := serviceCorpus.NewAdminService(activityRepo, txManager, activity, logger)

	engine := serviceReview.NewEngine(tableRepo, templateRepo, docRepo, store, llmClient, publisher, cfg.ExtractionConcurrency, logger)
	tableService := serviceReview.NewTableService(tableRepo, templateRepo, docRepo, txManager, authorizer, engine, publisher, activity, logger)
	queryService := serviceReview.NewQueryService(tableRepo, templateRepo, authorizer, llmClient, logger)
	templateService := serviceReview.NewTemplateService(templateRepo, logger)
	if n, err := templateService.SeedSystemTemplates(ctx); err != nil {
		logger.Error("failed to seed system templates", "error", err)
	} else {
		logger.Info("system templates ready", "count", n)
	}

	// Background workers
	ingestion.Start(ctx, cfg.IngestWorkers)
	if _, err := ingestion.RequeuePending(ctx); err != nil {
		logger.Error("failed to requeue pending documents", "error", err)
	}
	ingestion.StartRequeue(ctx, 5*time.Minute)
	jobs.NewTTLSweeper(lifecycleService, cfg.TTLSweepInterval, logger).Start(ctx)

	logger.Info("services initialized")

	// Handlers
	documentHandler := handler.NewDocumentHandler(documentService, lifecycleService, logger)
	projectHandler := handler.NewProjectHandler(projectService, duplicateService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	reviewHandler := handler.NewReviewHandler(tableService, queryService, logger)
	templateHandler := handler.NewTemplateHandler(templateService, logger)
	adminHandler := handler.NewAdminHandler(adminService, projectService, lifecycleService, tableService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)
	eventsHandler := handler.NewEventsHandler(eventSource, authorizer, sse.DefaultConfig(), logger)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", documentHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", documentHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents", documentHandler.ListDocuments)
	mux.HandleFunc("GET /api/documents/export", documentHandler.ExportDocuments) // Must come before {id} route
	mux.HandleFunc("GET /api/documents/{id}", documentHandler.GetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", documentHandler.DeleteDocument)
	mux.HandleFunc("POST /api/documents/{id}/resubmit", documentHandler.ResubmitDocument)
	mux.HandleFunc("POST /api/documents/{id}/extend", documentHandler.ExtendTTL)
	mux.HandleFunc("POST /api/documents/{id}/promote", documentHandler.PromoteDocument)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/duplicates", projectHandler.CheckDuplicates)

	// Membership routes
	mux.HandleFunc("POST /api/projects/{id}/documents", documentHandler.CreateDocument) // Upload straight into the project
	mux.HandleFunc("POST /api/projects/{id}/memberships", projectHandler.AddDocument)
	mux.HandleFunc("GET /api/projects/{id}/documents", projectHandler.ListProjectDocuments)
	mux.HandleFunc("PATCH /api/projects/{id}/documents/{documentId}", folderHandler.MoveDocument)
	mux.HandleFunc("DELETE /api/projects/{id}/documents/{documentId}", projectHandler.RemoveDocument)

	// Folder routes
	mux.HandleFunc("GET /api/projects/{id}/folders", folderHandler.ListFolders)
	mux.HandleFunc("POST /api/projects/{id}/folders", folderHandler.CreateFolder)
	mux.HandleFunc("DELETE /api/projects/{id}/folders", folderHandler.DeleteFolder)

	// Review template routes
	mux.HandleFunc("GET /api/review-templates", templateHandler.ListTemplates)
	mux.HandleFunc("POST /api/review-templates", templateHandler.CreateTemplate)
	mux.HandleFunc("GET /api/review-templates/{id}", templateHandler.GetTemplate)
	mux.HandleFunc("DELETE /api/review-templates/{id}", templateHandler.DeleteTemplate)

	// Review table routes
	mux.HandleFunc("POST /api/review-tables", reviewHandler.CreateTable)
	mux.HandleFunc("GET /api/review-tables", reviewHandler.ListTables)
	mux.HandleFunc("GET /api/review-tables/{id}", reviewHandler.GetTable)
	mux.HandleFunc("DELETE /api/review-tables/{id}", reviewHandler.DeleteTable)
	mux.HandleFunc("PATCH /api/review-tables/{id}/cells", reviewHandler.EditCell)
	mux.HandleFunc("POST /api/review-tables/{id}/cells/verify", reviewHandler.ToggleVerified)
	mux.HandleFunc("GET /api/review-tables/{id}/cells/history", reviewHandler.GetCellHistory)
	mux.HandleFunc("GET /api/review-tables/{id}/export", reviewHandler.ExportTable)
	mux.HandleFunc("POST /api/review-tables/{id}/query", reviewHandler.Query)

	// Admin routes
	mux.HandleFunc("GET /api/admin/overview", adminHandler.Overview)
	mux.HandleFunc("GET /api/admin/users", adminHandler.UserStats)
	mux.HandleFunc("GET /api/admin/activity", adminHandler.ActivityLog)
	mux.HandleFunc("POST /api/admin/transfer-ownership", adminHandler.TransferOwnership)
	mux.HandleFunc("POST /api/admin/projects/{id}/reconcile", adminHandler.ReconcileProject)
	mux.HandleFunc("GET /api/admin/stale", adminHandler.StaleJobs)

	// Model and push update routes
	mux.HandleFunc("GET /api/models", modelsHandler.GetModels)
	mux.HandleFunc("GET /api/events", eventsHandler.StreamEvents) // SSE

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  60 * time.Second, // Uploads
		WriteTimeout: 0,                // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Let in-flight ingestion and running extractions reach a terminal state
	ingestion.Wait()
	engine.Wait()
	logger.Info("server stopped")
}
