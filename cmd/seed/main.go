package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"lexcorpus/internal/config"
	"lexcorpus/internal/repository/postgres"
	postgresReview "lexcorpus/internal/repository/postgres/review"
	serviceReview "lexcorpus/internal/service/review"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before setting up the schema (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed system templates")
	clearData := flag.Bool("clear-data", false, "Clear documents, projects and review tables (keep schema and templates)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// Destructive operations are never allowed against production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data cannot run in the prod environment")
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	switch {
	case *clearData:
		log.Printf("Clearing data (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		dropped, err := postgres.DropAll(ctx, pool, tables)
		if err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Printf("Dropped %d tables", len(dropped))
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.RunSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("Data cleared")
		return
	}

	if *schemaOnly {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	templateService := serviceReview.NewTemplateService(postgresReview.NewTemplateRepository(repoConfig), logger)

	n, err := templateService.SeedSystemTemplates(ctx)
	if err != nil {
		log.Fatalf("Failed to seed system templates: %v", err)
	}
	log.Printf("Seeded %d system templates", n)
}
