package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/storage/memory"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config file into a temp dir whose logs and run
// export also live under that dir, and returns the dir.
func writeConfig(t *testing.T, overrides map[string]any) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"stress": map[string]any{
			"producers":        4,
			"consumers":        3,
			"itemsPerProducer": 200,
		},
		"storage": map[string]any{
			"type":   "memory",
			"memory": map[string]any{"outputDir": filepath.Join(dir, "runs")},
		},
	}
	for k, v := range overrides {
		cfg[k] = v
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(args, &out)
	return code, out.String()
}

func TestRun_NoCommand(t *testing.T) {
	code, out := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Usage: boundedq")
	for name := range commands {
		assert.Contains(t, out, name)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, out := runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, `unknown command "frobnicate"`)
}

func TestRun_BadFlag(t *testing.T) {
	code, _ := runCLI(t, "-nope", "demo")
	assert.Equal(t, 2, code)
}

func TestRun_Demo(t *testing.T) {
	dir := writeConfig(t, nil)

	code, out := runCLI(t, "-config", dir, "demo")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "pushed:  1 4 9 16 25")
	assert.Contains(t, out, "popped:  1 4 9 16 25")
	assert.Contains(t, out, "full     head=0 tail=0 count=5/5")
	assert.Contains(t, out, "churned: 3")
}

func TestRun_DemoCommandIsCaseInsensitive(t *testing.T) {
	dir := writeConfig(t, map[string]any{"channel": map[string]any{"capacity": 2}})

	code, out := runCLI(t, "-config", dir, "DEMO")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "pushed:  1 4\n")
}

func TestRun_WritesSessionLog(t *testing.T) {
	dir := writeConfig(t, nil)

	code, _ := runCLI(t, "-config", dir, "demo")
	require.Equal(t, 0, code)

	matches, err := filepath.Glob(filepath.Join(dir, "logs", AppName+".*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "command=demo")
	assert.Contains(t, string(data), "Command complete")
}

func TestRun_StressRecordsAndListsRun(t *testing.T) {
	dir := writeConfig(t, nil)

	code, out := runCLI(t, "-config", dir, "stress")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "producers=4 consumers=3 capacity=5")
	assert.Contains(t, out, "expected 800, consumed 800")
	assert.Equal(t, 3, strings.Count(out, "consumer "))

	// memory storage exports on close
	_, err := os.Stat(filepath.Join(dir, "runs", memory.ExportName))
	require.NoError(t, err)

	// influx is disabled by default, so the point lands in the backup file
	_, err = os.Stat(filepath.Join(dir, "logs", InfluxBackupName))
	require.NoError(t, err)

	code, out = runCLI(t, "-config", dir, "history")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "#1 ")
	assert.Contains(t, out, "consumed=800/800")
	assert.Contains(t, out, " ok")
}

func TestRun_StressWithSQLite(t *testing.T) {
	dir := t.TempDir()
	dir = writeConfig(t, map[string]any{
		"storage": map[string]any{
			"type":   "sqlite",
			"sqlite": map[string]any{"path": filepath.Join(dir, "runs.db")},
		},
	})

	code, out := runCLI(t, "-config", dir, "stress")
	require.Equal(t, 0, code, out)

	code, out = runCLI(t, "-config", dir, "history", "1")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "consumed=800/800")
}

func TestRun_StressInvalidConfig(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"stress": map[string]any{"producers": 0},
	})

	code, out := runCLI(t, "-config", dir, "stress")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "producers must be positive")
}

func TestRun_Pool(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"pool": map[string]any{"workers": 3, "queueSize": 2},
	})

	code, out := runCLI(t, "-config", dir, "pool")
	require.Equal(t, 0, code, out)
	for _, line := range []string{"worker says 0", "worker says 1", "worker says 2"} {
		assert.Contains(t, out, line)
	}
	assert.NotContains(t, out, "worker says 3")
}

func TestRun_PoolPolling(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"pool": map[string]any{"workers": 2, "polling": true},
	})

	code, out := runCLI(t, "-config", dir, "pool")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "worker says 1")
}

func TestRun_HistoryEmpty(t *testing.T) {
	dir := writeConfig(t, nil)

	code, out := runCLI(t, "-config", dir, "history")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "no runs recorded")
}

func TestRun_HistoryInvalidLimit(t *testing.T) {
	dir := writeConfig(t, nil)

	code, out := runCLI(t, "-config", dir, "history", "many")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Usage: boundedq")
}

func TestRun_UnknownStorageType(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"storage": map[string]any{"type": "tape"},
	})

	code, out := runCLI(t, "-config", dir, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unknown storage type: tape")
}

func TestRun_MissingConfigUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Chdir(dir)

	code, out := runCLI(t, "-config", dir, "demo")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "pushed:  1 4 9 16 25")
}

func sessionLog(t *testing.T, dir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "logs", AppName+".*.log"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[len(matches)-1])
	require.NoError(t, err)
	return string(data)
}

func TestRun_PoolLogsQueueDepth(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"pool": map[string]any{"workers": 2, "queueSize": 4},
	})

	code, out := runCLI(t, "-config", dir, "pool")
	require.Equal(t, 0, code, out)

	log := sessionLog(t, dir)
	assert.Contains(t, log, "running task")
	assert.Contains(t, log, "pending=")
	assert.Nil(t, activePool.Load())
}

func TestRun_StressStreamed(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"stress": map[string]any{
			"producers":        3,
			"consumers":        2,
			"itemsPerProducer": 100,
			"streamed":         true,
		},
	})

	code, out := runCLI(t, "-config", dir, "stress")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "expected 300, consumed 300")
	assert.Contains(t, sessionLog(t, dir), "streamed=true")
}
