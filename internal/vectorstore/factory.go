package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// NewStore builds the configured store implementation.
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	dimensions := cfg.Embedding.Dimensions
	switch cfg.Storage.StoreType {
	case "memory", "":
		return NewSnapshotStore(cfg.Storage.SnapshotPath, dimensions, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.DatabasePath, dimensions, logger)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Storage.StoreType)
	}
}
