package storage

import (
	"context"
	"fmt"

	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewArtifactStore builds the store selected by cfg.Type. For S3 the bucket is created when missing.
func NewArtifactStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (shared.ArtifactStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case config.StorageTypeLocal, "":
		store, err := NewLocalArtifactStore(cfg.LocalDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using local artifact store", zap.String("root", store.Root()))
		return store, nil
	case config.StorageTypeS3:
		store, err := NewS3ArtifactStore(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("using S3 artifact store", zap.String("bucket", store.Bucket()))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
