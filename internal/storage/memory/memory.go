// internal/storage/memory/memory.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/pkg/core"
)

// ExportName is the file Close writes into OutputDir, with ".gz" appended
// when compression is on.
const ExportName = "runs.json"

// Backend keeps run results in memory and exports them as JSON on Close
type Backend struct {
	cfg    config.MemoryConfig
	runs   []core.RunResult
	nextID uint
	mu     sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init loads the runs of a previous export, if OutputDir holds one
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	runs, err := readExport(b.exportPath(), b.cfg.CompressOutput)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load previous runs: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = runs
	for _, r := range runs {
		if r.ID > b.nextID {
			b.nextID = r.ID
		}
	}
	return nil
}

// Close writes the export file when an output directory is configured
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// RecordRun stores a copy of r and assigns its ID
func (b *Backend) RecordRun(r *core.RunResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	r.ID = b.nextID

	stored := *r
	stored.PerConsumer = append([]int64(nil), r.PerConsumer...)
	b.runs = append(b.runs, stored)
	return nil
}

// Runs returns stored results, newest first
func (b *Backend) Runs(limit int) ([]core.RunResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.RunResult, 0, n)
	for i := len(b.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.runs[i])
	}
	return out, nil
}

// Export writes every stored run, oldest first, to OutputDir and returns
// the file path
func (b *Backend) Export() (string, error) {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := b.exportPath()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.cfg.CompressOutput {
		return path, writeGzipJSON(path, b.runs)
	}
	return path, writeJSON(path, b.runs)
}

func (b *Backend) exportPath() string {
	path := filepath.Join(b.cfg.OutputDir, ExportName)
	if b.cfg.CompressOutput {
		path += ".gz"
	}
	return path
}

func readExport(path string, compressed bool) ([]core.RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gzReader.Close()
		r = gzReader
	}

	var runs []core.RunResult
	if err := json.NewDecoder(r).Decode(&runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func writeJSON(path string, runs []core.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return encode(f, runs)
}

func writeGzipJSON(path string, runs []core.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := encode(gzWriter, runs); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

func encode(w io.Writer, runs []core.RunResult) error {
	if runs == nil {
		runs = []core.RunResult{}
	}
	return json.NewEncoder(w).Encode(runs)
}
