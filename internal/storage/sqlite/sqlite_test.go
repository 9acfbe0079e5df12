package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/boundedqueue/internal/database"
	"github.com/OCAP2/boundedqueue/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_RecordAndList(t *testing.T) {
	b := New(Config{Path: filepath.Join(t.TempDir(), "runs.db")}, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	for i := 1; i <= 3; i++ {
		r := &core.RunResult{
			StartedAt:   time.Now().UTC(),
			Capacity:    i,
			Expected:    int64(i * 10),
			Consumed:    int64(i * 10),
			PerConsumer: []int64{int64(i * 10)},
		}
		require.NoError(t, b.RecordRun(r))
		assert.Equal(t, uint(i), r.ID)
	}

	runs, err := b.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 3, runs[0].Capacity)
	assert.Equal(t, 2, runs[1].Capacity)
	assert.Equal(t, []int64{30}, runs[0].PerConsumer)
	assert.True(t, runs[0].OK())
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	b := New(Config{Path: path}, nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordRun(&core.RunResult{Capacity: 9}))
	require.NoError(t, b.Close())

	reopened := New(Config{Path: path}, nil)
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	runs, err := reopened.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 9, runs[0].Capacity)
}

func TestMemoryBackend_DumpOnClose(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	b := New(Config{DumpPath: dump}, nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordRun(&core.RunResult{Capacity: 4}))
	require.NoError(t, b.Close())

	_, err := os.Stat(dump)
	require.NoError(t, err)

	db, err := database.GetSqliteDBStandalone(dump)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Table("runs").Count(&count).Error)
	assert.GreaterOrEqual(t, count, int64(1))
}

func TestClose_BeforeInit(t *testing.T) {
	b := New(Config{}, nil)
	assert.NoError(t, b.Close())
}

func TestClose_Twice(t *testing.T) {
	b := New(Config{Path: filepath.Join(t.TempDir(), "runs.db")}, nil)
	require.NoError(t, b.Init())

	require.NoError(t, b.Close())
	assert.NotPanics(t, func() {
		assert.NoError(t, b.Close())
	})
}

func TestClose_AfterFailedInit(t *testing.T) {
	b := New(Config{Path: filepath.Join(t.TempDir(), "missing", "runs.db")}, nil)
	require.Error(t, b.Init())

	assert.Nil(t, b.Backend)
	assert.NotPanics(t, func() {
		assert.NoError(t, b.Close())
	})
}

func TestClose_TwiceWithDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil)
	require.NoError(t, b.Init())

	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
