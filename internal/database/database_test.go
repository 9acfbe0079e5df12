package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/boundedqueue/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "bq")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "runs")

	assert.Equal(t,
		"host=db.internal port=5433 user=bq password=secret dbname=runs sslmode=disable",
		PostgresDSN())
}

func TestGetSqliteDBStandalone_FileAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&model.Run{}))
	require.NoError(t, db.Create(&model.Run{Capacity: 5, Expected: 10, Consumed: 10, OK: true}).Error)

	var count int64
	require.NoError(t, db.Model(&model.Run{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Run{Capacity: 3}).Error)

	out := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, DumpMemoryDBToDisk(db, out))

	dumped, err := GetSqliteDBStandalone(out)
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, dumped.First(&run).Error)
	assert.Equal(t, 3, run.Capacity)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	err := DumpMemoryDBToDisk(nil, "")
	assert.Error(t, err)
}

func TestManager_SetupWithoutConnect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}
