// Package sqlitestorage stores runs in SQLite through the GORM backend.
// The database lives in a file, or in memory with optional periodic and
// final dumps to disk via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/boundedqueue/internal/database"
	"github.com/OCAP2/boundedqueue/internal/logging"
	"github.com/OCAP2/boundedqueue/internal/storage/gormstore"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string // database file; empty keeps it in memory
	DumpPath     string // VACUUM INTO target for in-memory databases
	DumpInterval time.Duration
}

// Backend wraps the GORM backend with SQLite connection ownership.
type Backend struct {
	*gormstore.Backend
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a SQLite backend. The database is opened by Init.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{cfg: cfg, log: logManager}
}

// Init opens the database, migrates it and starts the dump goroutine. On
// failure the database is closed again and Close has nothing to do.
func (b *Backend) Init() error {
	db, err := database.GetSqliteDBStandalone(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	store := gormstore.New(db, b.log)
	if err := store.Init(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return err
	}
	b.Backend = store

	b.stopChan = make(chan struct{})
	if b.inMemory() && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the
// connection. Calling it again has no effect.
func (b *Backend) Close() error {
	if b.Backend == nil || b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.stopChan = nil
	b.wg.Wait()

	if b.inMemory() && b.cfg.DumpPath != "" {
		if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
			return err
		}
	}

	sqlDB, err := b.DB().DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

func (b *Backend) inMemory() bool {
	return b.cfg.Path == ""
}

// dumpLoop periodically snapshots the in-memory database to DumpPath.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
				b.log.Logger().Error("Error dumping SQLite DB to disk", "error", err)
			} else {
				b.log.Logger().Debug("Dumped SQLite DB to disk", "duration", time.Since(start))
			}
		}
	}
}
