package main

import (
	"fmt"
	"path/filepath"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/database"
	"github.com/OCAP2/boundedqueue/internal/storage"
	"github.com/OCAP2/boundedqueue/internal/storage/gormstore"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	if storageCfg.Type == "auto" {
		Logger.Info("Auto storage backend selected, trying Postgres first")
		return newAutoBackend(storageCfg), nil
	}

	backend, err := storage.NewBackend(storageCfg, SlogManager)
	if err != nil {
		return nil, err
	}
	Logger.Info("Storage backend created", "type", storageCfg.Type)
	return backend, nil
}

// autoBackend stores runs in Postgres when it answers and in a local SQLite
// file otherwise.
type autoBackend struct {
	*gormstore.Backend
	manager *database.Manager
}

func newAutoBackend(storageCfg config.StorageConfig) *autoBackend {
	m := database.NewManager(ZLogger)
	m.SqliteFilePath = storageCfg.SQLite.Path
	if m.SqliteFilePath == "" {
		m.SqliteFilePath = filepath.Join(config.GetString("logsDir"), AppName+".db")
	}
	return &autoBackend{manager: m}
}

func (b *autoBackend) Init() error {
	if err := b.manager.Connect(); err != nil {
		return err
	}
	if err := b.manager.Setup(); err != nil {
		return err
	}
	if b.manager.ShouldSaveLocal {
		Logger.Warn("Postgres unreachable, storing runs locally", "path", b.manager.SqliteFilePath)
	}
	b.Backend = gormstore.New(b.manager.DB, SlogManager)
	return nil
}

func (b *autoBackend) Close() error {
	if err := b.manager.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
