// Package bounded provides a fixed-capacity FIFO channel guarded by a mutex
// and two condition variables.
//
// # Protocol
//
// Producers call WaitAndPush (blocking) or TryPush (non-blocking); consumers
// call WaitAndPop or TryPop. A full channel blocks WaitAndPush until a pop
// frees a slot; an empty channel blocks WaitAndPop until a push fills one.
// Every wait re-checks its predicate in a loop, so spurious wakeups and the
// wake-everyone storm from Close are harmless.
//
// # Closing
//
// Close is a one-way transition. After it every push fails, while consumers
// keep popping whatever is still buffered. Once the buffer is drained, pops
// report end-of-stream instead of blocking:
//
//	for {
//	    v, ok := ch.WaitAndPop()
//	    if !ok {
//	        break // closed and drained
//	    }
//	    handle(v)
//	}
//
// The owning code calls Close once, after the last producer is done, and
// then waits for its consumers.
//
// # Bounded waits
//
// PushContext, PopContext, PushTimeout and PopTimeout give up when their
// context ends or the duration elapses. A wait that gives up leaves the
// channel exactly as a failed TryPush or TryPop would.
//
// # Nil channels
//
// Methods on a nil *Channel never block: pushes and pops fail, Empty and
// Closed report true, Close does nothing.
package bounded
