//go:build debug

package channel

import "github.com/OCAP2/boundedqueue/pkg/bounded"

// New creates a bounded channel.
// In debug builds the capacity is forced to 1 (ignores size) so every
// producer contends on a single slot.
func New[T any](size int, opts ...bounded.Option) (*bounded.Channel[T], error) {
	return bounded.New[T](1, opts...)
}
