package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_DeliversInOrderAndCloses(t *testing.T) {
	ch, err := New[int](4)
	require.NoError(t, err)

	go func() {
		for i := 0; i < 10; i++ {
			ch.WaitAndPush(i)
		}
		ch.Close()
	}()

	var got []int
	for v := range Stream[int](context.Background(), ch) {
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestStream_StopsOnContext(t *testing.T) {
	ch, err := New[int](1)
	require.NoError(t, err)
	require.True(t, ch.TryPush(1))

	ctx, cancel := context.WithCancel(context.Background())
	out := Stream[int](ctx, ch)
	cancel()

	select {
	case <-drain(out):
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancellation")
	}
	assert.False(t, ch.Closed())
}

func TestStream_StopsOnContextWhileWaiting(t *testing.T) {
	ch, err := New[int](1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := Stream[int](ctx, ch)

	// nothing is buffered and the channel stays open, so the pump is
	// parked waiting for an element when ctx ends
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancellation")
	}
	assert.False(t, ch.Closed())
	assert.True(t, ch.TryPush(2), "channel must stay usable")
}

func TestFeed(t *testing.T) {
	ch, err := New[string](8)
	require.NoError(t, err)

	in := make(chan string, 3)
	in <- "a"
	in <- "b"
	in <- "c"
	close(in)

	n := Feed[string](context.Background(), in, ch)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, ch.Size())
}

func TestFeed_StopsWhenClosed(t *testing.T) {
	ch, err := New[int](8)
	require.NoError(t, err)
	ch.Close()

	in := make(chan int, 1)
	in <- 1

	assert.Equal(t, 0, Feed[int](context.Background(), in, ch))
}

func TestFeed_StopsOnContextWhileFull(t *testing.T) {
	ch, err := New[int](1)
	require.NoError(t, err)
	require.True(t, ch.TryPush(0))

	in := make(chan int, 1)
	in <- 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() {
		done <- Feed[int](ctx, in, ch)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("feed did not return after cancellation")
	}
	assert.Equal(t, 1, ch.Size())
	assert.False(t, ch.Closed())
}

func drain[T any](c <-chan T) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range c {
		}
		close(done)
	}()
	return done
}
