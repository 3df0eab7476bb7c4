package archive

import (
	"context"
	"fmt"

	"sheetsync/internal/config"
)

// NewArchiveFromConfig creates an Archive based on the archive config type.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem archive requires root to be set")
		}
		return NewFileSystemArchive(cfg.Root)
	case "s3":
		return NewS3Archive(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
