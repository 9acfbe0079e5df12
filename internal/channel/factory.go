//go:build !debug

package channel

import "github.com/OCAP2/boundedqueue/pkg/bounded"

// New creates a bounded channel with the given capacity.
func New[T any](size int, opts ...bounded.Option) (*bounded.Channel[T], error) {
	return bounded.New[T](size, opts...)
}
