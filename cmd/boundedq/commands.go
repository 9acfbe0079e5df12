package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/influx"
	"github.com/OCAP2/boundedqueue/internal/pool"
	"github.com/OCAP2/boundedqueue/internal/stress"
	"github.com/OCAP2/boundedqueue/pkg/bounded"
)

const meterName = "github.com/OCAP2/boundedqueue/cmd/boundedq"

// InfluxBackupName is the line-protocol backup written to logsDir when
// InfluxDB is disabled or unreachable.
const InfluxBackupName = "influx_backup.lp.gz"

var errLostElements = errors.New("consumed total does not match pushed total")

func demoCommand(ctx context.Context, out io.Writer, args []string) error {
	capacity := config.GetInt("channel.capacity")

	report, err := stress.Boundary(capacity)
	for _, step := range report.Steps {
		s := step.Snapshot
		fmt.Fprintf(out, "%-8s head=%d tail=%d count=%d/%d\n", step.Label, s.Head, s.Tail, s.Count, s.Capacity)
	}
	fmt.Fprintf(out, "pushed:  %s\n", joinInts(report.Pushed))
	fmt.Fprintf(out, "popped:  %s\n", joinInts(report.Popped))
	fmt.Fprintf(out, "churned: %d\n", report.Churned)
	if err != nil {
		return fmt.Errorf("boundary scenario failed: %w", err)
	}
	return nil
}

func stressCommand(ctx context.Context, out io.Writer, args []string) error {
	sc := config.GetStressConfig()
	cfg := stress.Config{
		Capacity:         sc.Capacity,
		Producers:        sc.Producers,
		Consumers:        sc.Consumers,
		ItemsPerProducer: sc.ItemsPerProducer,
		Value:            sc.Value,
		Streamed:         sc.Streamed,
	}

	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	influxManager := influx.NewManager(
		config.GetInfluxConfig(),
		ZLogger,
		filepath.Join(config.GetString("logsDir"), InfluxBackupName),
	)
	if err := influxManager.Connect(ctx); err != nil {
		Logger.Warn("InfluxDB unavailable, run metrics not written", "error", err)
		influxManager = nil
	} else {
		defer influxManager.Close()
	}

	result, runErr := stress.Run(ctx, cfg, ComponentLog,
		bounded.WithName("stress"),
		bounded.WithLogger(ComponentLog),
		bounded.WithMeter(OTelProvider.Meter(meterName)),
	)
	if result == nil {
		return runErr
	}

	fmt.Fprintf(out, "producers=%d consumers=%d capacity=%d\n", result.Producers, result.Consumers, result.Capacity)
	for i, sum := range result.PerConsumer {
		fmt.Fprintf(out, "consumer %d: %d\n", i, sum)
	}
	fmt.Fprintf(out, "expected %d, consumed %d in %s (%.0f/s)\n",
		result.Expected, result.Consumed, result.Duration.Round(time.Microsecond), result.Throughput())

	if runErr != nil {
		return runErr
	}

	if err := backend.RecordRun(result); err != nil {
		Logger.Error("Failed to record run", "error", err)
	}
	if influxManager != nil {
		if err := influxManager.WriteRun(ctx, result); err != nil {
			Logger.Error("Failed to write run point", "error", err)
		}
	}

	if !result.OK() {
		return errLostElements
	}
	return nil
}

func poolCommand(ctx context.Context, out io.Writer, args []string) error {
	pc := config.GetPoolConfig()

	opts := []pool.Option{pool.Workers(pc.Workers), pool.QueueSize(pc.QueueSize)}
	if pc.Polling {
		opts = append(opts, pool.Polling())
	}
	if config.GetString("logLevel") == "debug" {
		opts = append(opts, pool.Logged())
	}

	p, err := pool.New(ComponentLog, opts...)
	if err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}

	activePool.Store(p)
	defer activePool.Store(nil)

	tasks := make(chan pool.Task)
	go func() {
		defer close(tasks)
		// tasks print concurrently
		var mu sync.Mutex
		for i := 0; i < p.Size(); i++ {
			task := func() {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "worker says %d\n", i)
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	queued := p.SubmitFrom(ctx, tasks)
	p.Shutdown()
	if queued < p.Size() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("queued %d of %d tasks: %w", queued, p.Size(), err)
		}
	}
	return nil
}

func historyCommand(ctx context.Context, out io.Writer, args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: invalid limit %q", errUsage, args[0])
		}
		limit = n
	}

	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer backend.Close()

	runs, err := backend.Runs(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	for _, r := range runs {
		status := "ok"
		if !r.OK() {
			status = "LOST"
		}
		fmt.Fprintf(out, "#%d %s cap=%d p=%d c=%d consumed=%d/%d %s %s\n",
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.Capacity, r.Producers, r.Consumers,
			r.Consumed, r.Expected,
			r.Duration.Round(time.Microsecond),
			status,
		)
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
