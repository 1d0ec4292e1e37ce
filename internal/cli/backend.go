// Package cli implements the corpusctl operator commands.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"lexcorpus/internal/config"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/events"
	"lexcorpus/internal/repository/postgres"
	postgresCorpus "lexcorpus/internal/repository/postgres/corpus"
	postgresReview "lexcorpus/internal/repository/postgres/review"
	"lexcorpus/internal/search"
	serviceAuth "lexcorpus/internal/service/auth"
	serviceCorpus "lexcorpus/internal/service/corpus"
	"lexcorpus/internal/service/corpus/converter"
	"lexcorpus/internal/storage"
)

// backend holds the services the operator commands run against.
// Commands share the server's configuration and database.
type backend struct {
	lifecycle    corpusSvc.LifecycleService
	projects     corpusSvc.ProjectService
	duplicates   corpusSvc.DuplicateService
	reviewTables reviewRepo.TableRepository

	closers []func()
}

// connect loads configuration and wires the corpus services.
// Publishing goes to Redis when configured so connected clients see changes.
func connect(ctx context.Context) (*backend, error) {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	b := &backend{closers: []func(){closeLog}}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	b.closers = append(b.closers, pool.Close)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	docRepo := postgresCorpus.NewDocumentRepository(repoConfig)
	projectRepo := postgresCorpus.NewProjectRepository(repoConfig)
	folderRepo := postgresCorpus.NewFolderRepository(repoConfig)
	membershipRepo := postgresCorpus.NewMembershipRepository(repoConfig)
	activityRepo := postgresCorpus.NewActivityRepository(repoConfig)
	tableRepo := postgresReview.NewTableRepository(repoConfig)
	b.reviewTables = tableRepo

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create content store: %w", err)
	}
	indexer := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	b.closers = append(b.closers, indexer.Close)

	var publisher services.EventPublisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisPublisher, err := events.NewRedisPublisher(cfg.RedisURL, logger)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		publisher = redisPublisher
		b.closers = append(b.closers, func() { _ = redisPublisher.Close() })
	}

	authorizer := serviceAuth.NewScopeAuthorizer(docRepo, projectRepo, tableRepo)
	deps := &serviceCorpus.Deps{
		Documents:   docRepo,
		Projects:    projectRepo,
		Folders:     folderRepo,
		Memberships: membershipRepo,
		TxManager:   postgres.NewTransactionManager(pool, logger),
		Store:       store,
		Indexer:     indexer,
		Publisher:   publisher,
		Activity:    serviceCorpus.NewActivityRecorder(activityRepo, logger),
		Authorizer:  authorizer,
		Converters:  converter.NewRegistry(),
		Logger:      logger,
	}
	quotas := serviceCorpus.Quotas{
		OrgStorageBytes:     cfg.OrgStorageQuotaBytes,
		ProjectStorageBytes: cfg.ProjectStorageQuotaBytes,
	}

	b.lifecycle = serviceCorpus.NewLifecycleService(deps)
	b.projects = serviceCorpus.NewProjectService(deps, quotas)
	b.duplicates = serviceCorpus.NewDuplicateService(membershipRepo, docRepo, store, authorizer, logger)
	return b, nil
}

// Close releases connections in reverse order of acquisition.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
