// Package blob provides the stores exported reports are written to.
package blob

import (
	"context"
	"fmt"

	"github.com/rl1809/visio/internal/port"
)

type Config struct {
	Driver port.BlobDriver
	FSRoot string
	S3     S3Config
}

// Open builds the store selected by cfg.Driver, defaulting to the filesystem.
func Open(ctx context.Context, cfg Config) (port.BlobStore, error) {
	switch cfg.Driver {
	case port.BlobDriverFS, "":
		return NewFilesystem(cfg.FSRoot)
	case port.BlobDriverS3:
		return NewS3(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
}
