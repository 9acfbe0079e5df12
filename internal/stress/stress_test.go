package stress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func TestRun_DefaultConfig(t *testing.T) {
	logger := &mockLogger{}

	res, err := Run(context.Background(), DefaultConfig(), logger)
	require.NoError(t, err)

	assert.Equal(t, int64(15000), res.Expected)
	assert.Equal(t, int64(15000), res.Consumed)
	assert.True(t, res.OK())
	assert.Len(t, res.PerConsumer, 5)
	assert.Contains(t, logger.messages, "stress run started")
	assert.Contains(t, logger.messages, "stress run complete")

	var sum int64
	for _, n := range res.PerConsumer {
		sum += n
	}
	assert.Equal(t, res.Consumed, sum)
}

func TestRun_SumsValues(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Capacity:         3,
		Producers:        4,
		Consumers:        2,
		ItemsPerProducer: 250,
		Value:            7,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), res.Consumed)
	assert.True(t, res.OK())
}

func TestRun_Streamed(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Capacity:         2,
		Producers:        6,
		Consumers:        3,
		ItemsPerProducer: 400,
		Value:            1,
		Streamed:         true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), res.Consumed)
	assert.True(t, res.OK())
	assert.Len(t, res.PerConsumer, 3)
}

func TestRun_StreamedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = Run(ctx, Config{
			Capacity:         1,
			Producers:        2,
			Consumers:        2,
			ItemsPerProducer: 1_000_000,
			Value:            1,
			Streamed:         true,
		}, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("streamed Run ignored cancellation")
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CapacityCoerced(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Capacity:         0,
		Producers:        2,
		Consumers:        2,
		ItemsPerProducer: 100,
		Value:            1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Capacity)
	assert.Equal(t, int64(200), res.Consumed)
}

func TestRun_NoItems(t *testing.T) {
	res, err := Run(context.Background(), Config{Capacity: 2, Producers: 3, Consumers: 3}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Consumed)
	assert.True(t, res.OK())
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{Capacity: 1, Producers: 0, Consumers: 1}, nil)
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{Capacity: 1, Producers: 1, Consumers: 0}, nil)
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = Run(ctx, Config{
			Capacity:         1,
			Producers:        2,
			Consumers:        1,
			ItemsPerProducer: 1_000_000,
			Value:            1,
		}, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoundary(t *testing.T) {
	r, err := Boundary(5)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 4, 9, 16, 25}, r.Pushed)
	assert.Equal(t, r.Pushed, r.Popped)
	assert.Equal(t, 3, r.Churned)

	require.Len(t, r.Steps, 4)
	assert.Equal(t, "empty", r.Steps[0].Label)
	assert.Equal(t, 0, r.Steps[0].Snapshot.Count)
	assert.Equal(t, 5, r.Steps[1].Snapshot.Count)
	assert.Equal(t, 0, r.Steps[2].Snapshot.Count)

	churned := r.Steps[3].Snapshot
	assert.Equal(t, 0, churned.Count)
	assert.Equal(t, churned.Head, churned.Tail)
	assert.Equal(t, 3, churned.Head)
}

func TestBoundary_SmallCapacities(t *testing.T) {
	for _, capacity := range []int{-3, 0, 1, 2, 8} {
		r, err := Boundary(capacity)
		require.NoError(t, err, "capacity %d", capacity)
		assert.Equal(t, r.Pushed, r.Popped)
	}
}
