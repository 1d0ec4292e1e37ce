package storage

import (
	"context"
	"fmt"
	"log/slog"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain/services"
)

// New builds the content store selected by CONTENT_STORE.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.ContentStore, error) {
	switch cfg.ContentStore {
	case "minio", "":
		store, err := NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.ContentBucket, cfg.MinioUseSSL, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "gcs":
		store, err := NewGCSStore(ctx, cfg.ContentBucket, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown content store %q (expected minio or gcs)", cfg.ContentStore)
	}
}
