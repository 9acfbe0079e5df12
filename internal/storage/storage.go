// internal/storage/storage.go
package storage

import "github.com/OCAP2/boundedqueue/pkg/core"

// Backend is the interface all run history stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordRun stores one harness result. Backends that assign IDs
	// synchronously set r.ID.
	RecordRun(r *core.RunResult) error

	// Runs returns up to limit stored results, newest first. A limit of
	// zero or less returns all of them.
	Runs(limit int) ([]core.RunResult, error)
}
