package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/OCAP2/boundedqueue/internal/channel"
	"github.com/OCAP2/boundedqueue/pkg/bounded"

	"go.opentelemetry.io/otel/metric"
)

// DefaultQueueSize is the task queue capacity when QueueSize is not given.
const DefaultQueueSize = 1024

// Task is a unit of work run by a pool worker.
type Task func()

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a Pool.
type Option func(*config)

type config struct {
	workers   int
	queueSize int
	polling   bool
	logged    bool
}

// Workers sets the number of worker goroutines. Defaults to runtime.NumCPU().
func Workers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// QueueSize sets the capacity of the task queue.
func QueueSize(n int) Option {
	return func(c *config) {
		c.queueSize = n
	}
}

// Polling makes idle workers spin on TryPop and yield instead of sleeping
// on the queue. It burns CPU while idle and exists for comparison only.
func Polling() Option {
	return func(c *config) {
		c.polling = true
	}
}

// Logged adds debug logging around every task.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Pool runs submitted tasks on a fixed set of workers fed by a bounded
// task queue.
type Pool struct {
	queue  *bounded.Channel[Task]
	logger Logger
	cfg    config
	wg     sync.WaitGroup

	// OTEL metrics
	queueLen     metric.Int64ObservableGauge
	processed    metric.Int64Counter
	failed       metric.Int64Counter
	dropped      metric.Int64Counter
	registration metric.Registration
	unregister   sync.Once
}

// New starts a pool. Uses the global OTel meter for metrics (no-op if not
// configured). logger may be nil.
func New(logger Logger, opts ...Option) (*Pool, error) {
	cfg := config{
		workers:   runtime.NumCPU(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	queue, err := bounded.New[Task](cfg.queueSize, bounded.WithName("pool"), bounded.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating task queue: %w", err)
	}

	p := &Pool{
		queue:  queue,
		logger: logger,
		cfg:    cfg,
	}
	if err := p.instrument(meter()); err != nil {
		queue.Close()
		return nil, err
	}

	for i := 0; i < cfg.workers; i++ {
		p.wg.Add(1)
		if cfg.polling {
			go p.pollWorker(i)
		} else {
			go p.worker(i)
		}
	}

	p.logInfo("pool started", "workers", cfg.workers, "queueSize", queue.Cap(), "polling", cfg.polling)
	return p, nil
}

func (p *Pool) instrument(m metric.Meter) error {
	var err error

	p.queueLen, err = m.Int64ObservableGauge(
		"pool.queue.size",
		metric.WithDescription("Current number of tasks waiting in the queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	p.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(p.queueLen, int64(p.queue.Size()))
			return nil
		},
		p.queueLen,
	)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	// Instruments created after the callback unregister it on failure.
	fail := func(err error) error {
		_ = p.registration.Unregister()
		return err
	}

	p.processed, err = m.Int64Counter(
		"pool.tasks.processed",
		metric.WithDescription("Total tasks run to completion"),
	)
	if err != nil {
		return fail(fmt.Errorf("creating processed counter: %w", err))
	}

	p.failed, err = m.Int64Counter(
		"pool.tasks.failed",
		metric.WithDescription("Total tasks that panicked"),
	)
	if err != nil {
		return fail(fmt.Errorf("creating failed counter: %w", err))
	}

	p.dropped, err = m.Int64Counter(
		"pool.tasks.dropped",
		metric.WithDescription("Total tasks refused by TrySubmit because the queue was full"),
	)
	if err != nil {
		return fail(fmt.Errorf("creating dropped counter: %w", err))
	}

	return nil
}

// Submit queues task, blocking while the queue is full. It returns an error
// matching bounded.ErrClosed once the pool is closed.
func (p *Pool) Submit(task Task) error {
	if !p.queue.WaitAndPush(task) {
		return fmt.Errorf("pool: submit: %w", bounded.ErrClosed)
	}
	return nil
}

// SubmitContext is Submit bounded by ctx.
func (p *Pool) SubmitContext(ctx context.Context, task Task) error {
	if err := p.queue.PushContext(ctx, task); err != nil {
		return fmt.Errorf("pool: submit: %w", err)
	}
	return nil
}

// SubmitFrom queues tasks read from in until in is closed, the pool is
// closed or ctx is done. It returns the number of tasks queued.
func (p *Pool) SubmitFrom(ctx context.Context, in <-chan Task) int {
	return channel.Feed[Task](ctx, in, p.queue)
}

// TrySubmit queues task without blocking. A full queue drops the task and
// returns an error matching bounded.ErrFull.
func (p *Pool) TrySubmit(task Task) error {
	if p.queue.TryPush(task) {
		return nil
	}
	if p.queue.Closed() {
		return fmt.Errorf("pool: submit: %w", bounded.ErrClosed)
	}
	p.dropped.Add(context.Background(), 1)
	return fmt.Errorf("pool: submit: %w", bounded.ErrFull)
}

// Close stops accepting tasks. Workers finish what is already queued.
func (p *Pool) Close() {
	p.queue.Close()
}

// Wait blocks until every worker has exited. Call Close first.
func (p *Pool) Wait() {
	p.wg.Wait()
	p.unregister.Do(func() {
		if p.registration != nil {
			_ = p.registration.Unregister()
		}
	})
	p.logDebug("pool stopped")
}

// Shutdown closes the pool and waits for the workers.
func (p *Pool) Shutdown() {
	p.Close()
	p.Wait()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.cfg.workers
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	return p.queue.Size()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		task, ok := p.queue.WaitAndPop()
		if !ok {
			return
		}
		p.run(id, task)
	}
}

func (p *Pool) pollWorker(id int) {
	defer p.wg.Done()
	for {
		// No push can succeed after Close, so an empty pop that follows
		// an observed close means the queue is drained.
		closed := p.queue.Closed()
		if task, ok := p.queue.TryPop(); ok {
			p.run(id, task)
			continue
		}
		if closed {
			return
		}
		runtime.Gosched()
	}
}

func (p *Pool) run(id int, task Task) {
	start := time.Now()
	if p.cfg.logged {
		p.logDebug("running task", "worker", id)
	}

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(context.Background(), 1)
			p.logError("task panicked", "worker", id, "panic", r, "duration", time.Since(start))
			return
		}
		p.processed.Add(context.Background(), 1)
		if p.cfg.logged {
			p.logDebug("task complete", "worker", id, "duration", time.Since(start))
		}
	}()

	task()
}

func (p *Pool) logDebug(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, kv...)
	}
}

func (p *Pool) logInfo(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Info(msg, kv...)
	}
}

func (p *Pool) logError(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Error(msg, kv...)
	}
}
