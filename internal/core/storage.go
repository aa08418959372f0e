package core

import (
	"context"
	"fmt"

	"bookshelf/internal/blob"
	"bookshelf/internal/config"
	"bookshelf/internal/infra/persistence/postgres"
	"bookshelf/internal/infra/persistence/sqlite"
	"bookshelf/pkg/domain"
)

// OpenSnapshotStore selects the snapshot backend named by cfg.StorageDriver.
// The file, memory and s3 drivers store the snapshot as a blob keyed by
// cfg.DataFile; sqlite and postgres keep it in a state table row.
func OpenSnapshotStore(ctx context.Context, cfg config.Config) (domain.SnapshotStore, error) {
	switch cfg.StorageDriver {
	case config.StorageFile, "":
		blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: cfg.DataDir})
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return NewBlobSnapshotStore(blobs, dataKey(cfg)), nil
	case config.StorageMemory:
		blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
		if err != nil {
			return nil, err
		}
		return NewBlobSnapshotStore(blobs, dataKey(cfg)), nil
	case config.StorageS3:
		blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverS3, S3: blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		}})
		if err != nil {
			return nil, fmt.Errorf("open s3 storage: %w", err)
		}
		return NewBlobSnapshotStore(blobs, dataKey(cfg)), nil
	case config.StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return s, nil
	case config.StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}

func dataKey(cfg config.Config) string {
	if cfg.DataFile == "" {
		return config.DefaultDataFile
	}
	return cfg.DataFile
}
