// pkg/core/run.go
package core

import "time"

// RunResult is the outcome of one producer/consumer harness run
type RunResult struct {
	ID               uint          `json:"id"`
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"duration"`
	Capacity         int           `json:"capacity"`
	Producers        int           `json:"producers"`
	Consumers        int           `json:"consumers"`
	ItemsPerProducer int           `json:"itemsPerProducer"`
	Value            int           `json:"value"`
	Expected         int64         `json:"expected"`
	Consumed         int64         `json:"consumed"`
	PerConsumer      []int64       `json:"perConsumer"`
}

// OK reports whether every pushed element was consumed exactly once
func (r RunResult) OK() bool {
	return r.Consumed == r.Expected
}

// Throughput returns consumed elements per second
func (r RunResult) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Consumed) / r.Duration.Seconds()
}
