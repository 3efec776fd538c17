// Package providers selects the storage.Client implementation for the
// configured storage driver.
package providers

import (
	"context"
	"fmt"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/storage/providers/local"
	"github.com/mrlokans/lingua/internal/storage/providers/s3"
)

// New returns the storage client selected by cfg.Driver.
func New(ctx context.Context, cfg config.Storage) (storage.Client, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal, "":
		return local.NewClient(cfg.LocalRoot)
	case config.StorageDriverS3:
		return s3.NewFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}
}
