// Package gormstore implements run storage on any GORM dialect. The sqlite
// and postgres backends build on it.
package gormstore

import (
	"fmt"

	"github.com/OCAP2/boundedqueue/internal/database"
	"github.com/OCAP2/boundedqueue/internal/logging"
	"github.com/OCAP2/boundedqueue/internal/model"
	"github.com/OCAP2/boundedqueue/internal/model/convert"
	"github.com/OCAP2/boundedqueue/pkg/core"

	"gorm.io/gorm"
)

// Backend stores runs through a caller-owned *gorm.DB.
type Backend struct {
	db  *gorm.DB
	log *logging.SlogManager
}

// New wraps db. The connection is not closed by Close.
func New(db *gorm.DB, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{db: db, log: logManager}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if err := database.Migrate(b.db); err != nil {
		return err
	}
	b.log.Logger().Debug("Run schema migrated", "dialect", b.db.Name())
	return nil
}

// Close is a no-op; the owner of the connection closes it.
func (b *Backend) Close() error {
	return nil
}

// RecordRun inserts r and sets r.ID.
func (b *Backend) RecordRun(r *core.RunResult) error {
	m, err := convert.RunToModel(*r)
	if err != nil {
		return err
	}
	if err := b.db.Create(&m).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	r.ID = m.ID
	return nil
}

// InsertBatch writes runs in one transaction.
func (b *Backend) InsertBatch(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}
	return b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&runs).Error; err != nil {
			return fmt.Errorf("failed to insert %d runs: %w", len(runs), err)
		}
		return nil
	})
}

// Runs returns up to limit runs, newest first.
func (b *Backend) Runs(limit int) ([]core.RunResult, error) {
	q := b.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []model.Run
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	out := make([]core.RunResult, 0, len(rows))
	for _, row := range rows {
		r, err := convert.RunToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}
