// Package postgres implements run storage on PostgreSQL. RecordRun hands
// runs to a bounded queue; a background writer drains it in batches.
package postgres

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/boundedqueue/internal/database"
	"github.com/OCAP2/boundedqueue/internal/logging"
	"github.com/OCAP2/boundedqueue/internal/model"
	"github.com/OCAP2/boundedqueue/internal/model/convert"
	"github.com/OCAP2/boundedqueue/internal/storage/gormstore"
	"github.com/OCAP2/boundedqueue/pkg/bounded"
	"github.com/OCAP2/boundedqueue/pkg/core"

	"gorm.io/gorm"
)

// DefaultQueueSize bounds the runs waiting for the writer.
const DefaultQueueSize = 256

// Dependencies holds all dependencies for the postgres backend.
type Dependencies struct {
	DB         *gorm.DB // optional; a connection is opened from db.* config when nil
	LogManager *logging.SlogManager
	QueueSize  int
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	store   *gormstore.Backend
	queue   *bounded.Channel[model.Run]
	ownsDB  bool
	written atomic.Int64
	done    sync.WaitGroup
}

// New creates a new postgres backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = DefaultQueueSize
	}
	return &Backend{deps: deps}
}

// openPostgres opens and validates a connection from db.* config.
var openPostgres = func() (*gorm.DB, error) {
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// Init connects if needed, migrates the schema and starts the writer. A
// connection opened here is closed again when Init fails.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := openPostgres()
		if err != nil {
			return err
		}
		b.deps.DB = db
		b.ownsDB = true
	}

	b.store = gormstore.New(b.deps.DB, b.deps.LogManager)
	if err := b.store.Init(); err != nil {
		b.releaseDB()
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	queue, err := bounded.New[model.Run](b.deps.QueueSize,
		bounded.WithName("postgres-writer"),
		bounded.WithLogger(logging.NewSlogAdapter(b.deps.LogManager.Logger())),
	)
	if err != nil {
		b.releaseDB()
		return fmt.Errorf("failed to create write queue: %w", err)
	}
	b.queue = queue

	b.done.Add(1)
	go b.writer()
	return nil
}

// releaseDB closes and forgets an owned connection.
func (b *Backend) releaseDB() {
	if !b.ownsDB {
		return
	}
	if sqlDB, err := b.deps.DB.DB(); err == nil {
		sqlDB.Close()
	}
	b.deps.DB = nil
	b.ownsDB = false
}

// Close stops accepting runs, waits for the writer to flush what is
// queued and closes an owned connection.
func (b *Backend) Close() error {
	if b.queue == nil {
		return nil
	}
	b.queue.Close()
	b.done.Wait()

	if b.ownsDB {
		sqlDB, err := b.deps.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// RecordRun queues r for the writer, blocking while the queue is full.
// r.ID is not set; IDs are assigned when the batch is written.
func (b *Backend) RecordRun(r *core.RunResult) error {
	m, err := convert.RunToModel(*r)
	if err != nil {
		return err
	}
	if !b.queue.WaitAndPush(m) {
		return fmt.Errorf("postgres: record run: %w", bounded.ErrClosed)
	}
	return nil
}

// Runs returns written runs, newest first. Runs still queued are not
// included.
func (b *Backend) Runs(limit int) ([]core.RunResult, error) {
	return b.store.Runs(limit)
}

// Written returns the number of runs committed by the writer.
func (b *Backend) Written() int64 {
	return b.written.Load()
}

// writer blocks for the first queued run, takes whatever else is buffered
// and commits the batch. It exits once the queue is closed and drained.
func (b *Backend) writer() {
	defer b.done.Done()
	log := b.deps.LogManager.Logger()

	for {
		first, ok := b.queue.WaitAndPop()
		if !ok {
			return
		}
		batch := append([]model.Run{first}, b.queue.Drain()...)

		start := time.Now()
		if err := b.store.InsertBatch(batch); err != nil {
			log.Error("Error writing runs", "count", len(batch), "error", err)
			continue
		}
		b.written.Add(int64(len(batch)))
		log.Debug("Wrote runs", "count", len(batch), "duration", time.Since(start))
	}
}
