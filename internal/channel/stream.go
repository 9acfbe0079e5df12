package channel

import "context"

// Stream pumps r into a native channel so consumers can select on it. The
// returned channel is closed once r reports end-of-stream or ctx is done,
// including while the pump is waiting for an element. An element already
// popped when ctx ends is dropped.
func Stream[T any](ctx context.Context, r Receiver[T]) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			v, err := r.PopContext(ctx)
			if err != nil {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Feed copies in into s until in is closed, s refuses a push, or ctx is
// done, including while waiting for room in s. It returns the number of
// elements pushed.
func Feed[T any](ctx context.Context, in <-chan T, s Sender[T]) int {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case v, ok := <-in:
			if !ok {
				return n
			}
			if err := s.PushContext(ctx, v); err != nil {
				return n
			}
			n++
		}
	}
}
