// Package channel provides generic channel interfaces over bounded.Channel
// and adapters to native Go channels.
package channel

import (
	"context"

	"github.com/OCAP2/boundedqueue/pkg/bounded"
)

// Sender provides write access to a channel.
type Sender[T any] interface {
	TryPush(T) bool
	WaitAndPush(T) bool
	PushContext(context.Context, T) error
}

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	TryPop() (T, bool)
	WaitAndPop() (T, bool)
	PopContext(context.Context) (T, error)
	Size() int
}

// Channel combines read and write access.
type Channel[T any] interface {
	Sender[T]
	Receiver[T]
	Close()
}

var _ Channel[int] = (*bounded.Channel[int])(nil)
