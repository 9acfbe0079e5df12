package stress

import (
	"fmt"

	"github.com/OCAP2/boundedqueue/pkg/bounded"
)

// Step is a labelled channel state captured during Boundary.
type Step struct {
	Label    string
	Snapshot bounded.Snapshot
}

// BoundaryReport records what the boundary scenario observed.
type BoundaryReport struct {
	Capacity int
	Pushed   []int
	Popped   []int
	Churned  int
	Steps    []Step
}

// Boundary fills a fresh channel with the squares 1..capacity, checks that
// one more TryPush fails, pops everything back in order and checks that one
// more TryPop fails. It then pushes and pops capacity/2+1 values in lockstep
// so head and tail wrap, and checks the channel ends empty.
func Boundary(capacity int) (BoundaryReport, error) {
	if capacity < 1 {
		capacity = 1
	}
	c, err := bounded.New[int](capacity)
	if err != nil {
		return BoundaryReport{}, err
	}
	defer c.Close()

	r := BoundaryReport{Capacity: capacity}
	r.step("empty", c)
	if !c.Empty() || c.Full() {
		return r, fmt.Errorf("new channel is not empty: %s", c)
	}

	for i := 1; i <= capacity; i++ {
		if !c.TryPush(i * i) {
			return r, fmt.Errorf("push %d rejected below capacity", i*i)
		}
		r.Pushed = append(r.Pushed, i*i)
	}
	before := c.Snapshot()
	if c.TryPush(-1) {
		return r, fmt.Errorf("push to full channel accepted")
	}
	if after := c.Snapshot(); after != before {
		return r, fmt.Errorf("rejected push changed state: %+v -> %+v", before, after)
	}
	r.step("full", c)

	for {
		v, ok := c.TryPop()
		if !ok {
			break
		}
		r.Popped = append(r.Popped, v)
	}
	if len(r.Popped) != len(r.Pushed) {
		return r, fmt.Errorf("popped %d of %d elements", len(r.Popped), len(r.Pushed))
	}
	for i := range r.Pushed {
		if r.Popped[i] != r.Pushed[i] {
			return r, fmt.Errorf("pop %d: got %d, want %d", i, r.Popped[i], r.Pushed[i])
		}
	}
	r.step("drained", c)

	for i := 1; i <= capacity/2+1; i++ {
		if !c.TryPush(i) {
			return r, fmt.Errorf("churn push %d rejected", i)
		}
		if _, ok := c.TryPop(); !ok {
			return r, fmt.Errorf("churn pop %d failed", i)
		}
		r.Churned++
	}
	r.step("churned", c)
	if !c.Empty() {
		return r, fmt.Errorf("channel not empty after churn: %s", c)
	}

	return r, nil
}

func (r *BoundaryReport) step(label string, c *bounded.Channel[int]) {
	r.Steps = append(r.Steps, Step{Label: label, Snapshot: c.Snapshot()})
}
