// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/logging"
	"github.com/OCAP2/boundedqueue/internal/storage/memory"
	"github.com/OCAP2/boundedqueue/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/boundedqueue/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The
// backend is not initialized; call Init before use.
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{LogManager: logManager}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:         cfg.SQLite.Path,
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, logManager), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
