package bounded

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxCapacity is the largest capacity New accepts.
const MaxCapacity = 1 << 30

// Channel is a fixed-capacity FIFO safely shared between goroutines.
//
// Elements live in a circular buffer addressed by head and tail indices.
// A single mutex guards all state; producers wait on notFull and consumers
// on notEmpty. A Channel must not be copied after first use.
type Channel[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	slots  []T
	head   int
	tail   int
	count  int
	closed bool

	name    string
	logger  Logger
	metrics *instruments
}

// New creates a channel holding at most capacity elements. A capacity below
// one is raised to one. Construction fails with an error matching ErrInit
// when the storage or the metric instruments cannot be set up; no partially
// built channel is returned.
func New[T any](capacity int, opts ...Option) (*Channel[T], error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if capacity < 1 {
		capacity = 1
	}

	slots, err := allocate[T](capacity)
	if err != nil {
		return nil, &InitError{Step: "storage", Err: err}
	}

	var ins *instruments
	if cfg.meter != nil {
		ins, err = newInstruments(cfg.meter, cfg.name)
		if err != nil {
			// storage is released with the failed channel
			return nil, &InitError{Step: "instruments", Err: err}
		}
	}

	c := &Channel[T]{
		slots:   slots,
		name:    cfg.name,
		logger:  cfg.logger,
		metrics: ins,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)

	c.debug("channel created", "capacity", capacity)
	return c, nil
}

// MustNew is like New but panics if the channel cannot be created.
func MustNew[T any](capacity int, opts ...Option) *Channel[T] {
	c, err := New[T](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func allocate[T any](capacity int) (slots []T, err error) {
	if capacity > MaxCapacity {
		return nil, fmt.Errorf("capacity %d exceeds maximum %d", capacity, MaxCapacity)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocating %d slots: %v", capacity, r)
		}
	}()
	return make([]T, capacity), nil
}

// TryPush inserts v without blocking. It reports false, leaving the channel
// untouched, when the channel is full or closed.
func (c *Channel[T]) TryPush(v T) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	if c.closed || c.count == len(c.slots) {
		c.mu.Unlock()
		c.metrics.reject()
		return false
	}
	c.put(v)
	c.mu.Unlock()

	c.notEmpty.Signal()
	c.metrics.push(1)
	return true
}

// TryPop removes the oldest element without blocking. It reports false when
// nothing is buffered. Elements buffered before Close remain poppable.
func (c *Channel[T]) TryPop() (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	if c.count == 0 {
		c.mu.Unlock()
		return zero, false
	}
	v := c.take()
	c.mu.Unlock()

	c.notFull.Signal()
	c.metrics.pop(1)
	return v, true
}

// WaitAndPush blocks until there is room for v or the channel is closed.
// It reports false without inserting if the channel is closed, including
// when Close is what woke it.
func (c *Channel[T]) WaitAndPush(v T) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	for c.count == len(c.slots) && !c.closed {
		c.notFull.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		c.metrics.reject()
		return false
	}
	c.put(v)
	c.mu.Unlock()

	c.notEmpty.Signal()
	c.metrics.push(1)
	return true
}

// WaitAndPop blocks until an element is available or the channel is closed
// and drained. The false result is the end-of-stream signal.
func (c *Channel[T]) WaitAndPop() (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	for c.count == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if c.count == 0 {
		// only reachable once closed
		c.mu.Unlock()
		return zero, false
	}
	v := c.take()
	c.mu.Unlock()

	c.notFull.Signal()
	c.metrics.pop(1)
	return v, true
}

// PushContext is WaitAndPush bounded by ctx. It returns nil on success,
// ErrClosed if the channel is closed, or an error matching both ErrTimeout
// and ctx.Err() if ctx ends first. When room appears at the same moment ctx ends, the push wins.
func (c *Channel[T]) PushContext(ctx context.Context, v T) error {
	if c == nil {
		return ErrClosed
	}

	stop := context.AfterFunc(ctx, func() { c.broadcast(c.notFull) })
	defer stop()

	c.mu.Lock()
	for c.count == len(c.slots) && !c.closed {
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			c.metrics.timeout()
			return fmt.Errorf("push: %w: %w", ErrTimeout, err)
		}
		c.notFull.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		c.metrics.reject()
		return ErrClosed
	}
	c.put(v)
	c.mu.Unlock()

	c.notEmpty.Signal()
	c.metrics.push(1)
	return nil
}

// PopContext is WaitAndPop bounded by ctx. It returns ErrClosed once the
// channel is closed and drained, or an error matching both ErrTimeout and
// ctx.Err() if ctx ends while nothing is buffered.
func (c *Channel[T]) PopContext(ctx context.Context) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrClosed
	}

	stop := context.AfterFunc(ctx, func() { c.broadcast(c.notEmpty) })
	defer stop()

	c.mu.Lock()
	for c.count == 0 && !c.closed {
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			c.metrics.timeout()
			return zero, fmt.Errorf("pop: %w: %w", ErrTimeout, err)
		}
		c.notEmpty.Wait()
	}
	if c.count == 0 {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	v := c.take()
	c.mu.Unlock()

	c.notFull.Signal()
	c.metrics.pop(1)
	return v, nil
}

// PushTimeout waits at most d for room. It returns ErrTimeout if none
// appeared, ErrClosed if the channel is closed.
func (c *Channel[T]) PushTimeout(v T, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := c.PushContext(ctx, v)
	if errors.Is(err, ErrTimeout) {
		return ErrTimeout
	}
	return err
}

// PopTimeout waits at most d for an element.
func (c *Channel[T]) PopTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	v, err := c.PopContext(ctx)
	if errors.Is(err, ErrTimeout) {
		return v, ErrTimeout
	}
	return v, err
}

// Close marks the channel closed and wakes every blocked producer and
// consumer. Pushes fail from then on; buffered elements can still be
// popped. Calling Close again has no effect.
func (c *Channel[T]) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	remaining := c.count
	c.mu.Unlock()

	c.notEmpty.Broadcast()
	c.notFull.Broadcast()

	c.debug("channel closed", "remaining", remaining)
}

// Drain removes and returns every buffered element without blocking.
func (c *Channel[T]) Drain() []T {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	out := make([]T, 0, c.count)
	for c.count > 0 {
		out = append(out, c.take())
	}
	c.mu.Unlock()

	if len(out) > 0 {
		c.notFull.Broadcast()
		c.metrics.pop(len(out))
	}
	return out
}

// Size returns the number of buffered elements at the moment of the call.
// Like Empty, Full and Closed, the answer may be stale by the time the
// caller acts on it.
func (c *Channel[T]) Size() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Empty reports whether nothing is buffered.
func (c *Channel[T]) Empty() bool {
	return c.Size() == 0
}

// Full reports whether the channel is at capacity.
func (c *Channel[T]) Full() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count == len(c.slots)
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Cap returns the fixed capacity.
func (c *Channel[T]) Cap() int {
	if c == nil {
		return 0
	}
	return len(c.slots)
}

// Snapshot is a point-in-time view of the ring indices, for debugging.
type Snapshot struct {
	Head     int
	Tail     int
	Count    int
	Capacity int
	Closed   bool
}

// Snapshot returns the current ring state.
func (c *Channel[T]) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Closed: true}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Head:     c.head,
		Tail:     c.tail,
		Count:    c.count,
		Capacity: len(c.slots),
		Closed:   c.closed,
	}
}

// String renders the channel as Channel(size/cap), with a closed marker.
func (c *Channel[T]) String() string {
	s := c.Snapshot()
	if s.Closed {
		return fmt.Sprintf("Channel(%d/%d, closed)", s.Count, s.Capacity)
	}
	return fmt.Sprintf("Channel(%d/%d)", s.Count, s.Capacity)
}

// put and take must be called with mu held and the respective room or
// element known to exist.

func (c *Channel[T]) put(v T) {
	c.slots[c.tail] = v
	c.tail = (c.tail + 1) % len(c.slots)
	c.count++
}

func (c *Channel[T]) take() T {
	var zero T
	v := c.slots[c.head]
	c.slots[c.head] = zero
	c.head = (c.head + 1) % len(c.slots)
	c.count--
	return v
}

func (c *Channel[T]) broadcast(cond *sync.Cond) {
	// Holding mu orders this wake after the waiter's ctx check.
	c.mu.Lock()
	cond.Broadcast()
	c.mu.Unlock()
}

func (c *Channel[T]) debug(msg string, keysAndValues ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, append([]any{"channel", c.name}, keysAndValues...)...)
}
