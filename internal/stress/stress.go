// Package stress drives a bounded channel with concurrent producers and
// consumers and checks that nothing is lost or duplicated.
package stress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/boundedqueue/internal/channel"
	"github.com/OCAP2/boundedqueue/pkg/bounded"
	"github.com/OCAP2/boundedqueue/pkg/core"
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config describes one harness run.
type Config struct {
	Capacity         int
	Producers        int
	Consumers        int
	ItemsPerProducer int
	Value            int

	// Streamed makes consumers range over channel.Stream instead of
	// calling WaitAndPop.
	Streamed bool
}

// DefaultConfig returns 10 producers pushing 1500 ones each through a
// channel of capacity 5, drained by 5 consumers.
func DefaultConfig() Config {
	return Config{
		Capacity:         5,
		Producers:        10,
		Consumers:        5,
		ItemsPerProducer: 1500,
		Value:            1,
	}
}

func (c Config) validate() error {
	if c.Producers < 1 {
		return fmt.Errorf("producers must be positive, got %d", c.Producers)
	}
	if c.Consumers < 1 {
		return fmt.Errorf("consumers must be positive, got %d", c.Consumers)
	}
	if c.ItemsPerProducer < 0 {
		return fmt.Errorf("itemsPerProducer must not be negative, got %d", c.ItemsPerProducer)
	}
	return nil
}

// Run pushes every item, closes the channel once all producers are done and
// waits for the consumers to reach end-of-stream. Cancelling ctx closes the
// channel early; the partial result is returned together with ctx.Err().
func Run(ctx context.Context, cfg Config, logger Logger, opts ...bounded.Option) (*core.RunResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ch, err := channel.New[int](cfg.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}

	result := &core.RunResult{
		StartedAt:        time.Now().UTC(),
		Capacity:         ch.Cap(),
		Producers:        cfg.Producers,
		Consumers:        cfg.Consumers,
		ItemsPerProducer: cfg.ItemsPerProducer,
		Value:            cfg.Value,
		Expected:         int64(cfg.Producers) * int64(cfg.ItemsPerProducer) * int64(cfg.Value),
		PerConsumer:      make([]int64, cfg.Consumers),
	}

	stop := context.AfterFunc(ctx, ch.Close)
	defer stop()

	logInfo(logger, "stress run started",
		"capacity", result.Capacity,
		"producers", cfg.Producers,
		"consumers", cfg.Consumers,
		"itemsPerProducer", cfg.ItemsPerProducer,
		"streamed", cfg.Streamed)

	var consumers sync.WaitGroup
	for i := 0; i < cfg.Consumers; i++ {
		consumers.Add(1)
		go func(id int) {
			defer consumers.Done()
			var sum int64
			if cfg.Streamed {
				for v := range channel.Stream[int](ctx, ch) {
					sum += int64(v)
				}
			} else {
				for {
					v, ok := ch.WaitAndPop()
					if !ok {
						break
					}
					sum += int64(v)
				}
			}
			result.PerConsumer[id] = sum
		}(i)
	}

	var producers sync.WaitGroup
	for i := 0; i < cfg.Producers; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for n := 0; n < cfg.ItemsPerProducer; n++ {
				if !ch.WaitAndPush(cfg.Value) {
					logDebug(logger, "producer stopped early", "producer", id, "pushed", n)
					return
				}
			}
		}(i)
	}

	producers.Wait()
	ch.Close()
	consumers.Wait()

	result.Duration = time.Since(result.StartedAt)
	for _, sum := range result.PerConsumer {
		result.Consumed += sum
	}

	if err := ctx.Err(); err != nil {
		logError(logger, "stress run interrupted", "consumed", result.Consumed, "expected", result.Expected)
		return result, fmt.Errorf("stress run interrupted: %w", err)
	}

	if result.OK() {
		logInfo(logger, "stress run complete", "consumed", result.Consumed, "duration", result.Duration)
	} else {
		logError(logger, "stress run lost elements", "consumed", result.Consumed, "expected", result.Expected)
	}
	return result, nil
}

func logDebug(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Debug(msg, kv...)
	}
}

func logInfo(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Info(msg, kv...)
	}
}

func logError(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Error(msg, kv...)
	}
}
