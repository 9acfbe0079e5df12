package bounded

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	attrs    metric.MeasurementOption
	size     metric.Int64UpDownCounter
	pushed   metric.Int64Counter
	popped   metric.Int64Counter
	rejected metric.Int64Counter
	timeouts metric.Int64Counter
}

func newInstruments(m metric.Meter, name string) (*instruments, error) {
	ins := &instruments{
		attrs: metric.WithAttributes(attribute.String("channel", name)),
	}

	var err error

	ins.size, err = m.Int64UpDownCounter(
		"bounded.channel.size",
		metric.WithDescription("Elements currently buffered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating size counter: %w", err)
	}

	ins.pushed, err = m.Int64Counter(
		"bounded.channel.pushed",
		metric.WithDescription("Total elements accepted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pushed counter: %w", err)
	}

	ins.popped, err = m.Int64Counter(
		"bounded.channel.popped",
		metric.WithDescription("Total elements removed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating popped counter: %w", err)
	}

	ins.rejected, err = m.Int64Counter(
		"bounded.channel.rejected",
		metric.WithDescription("Total pushes refused because the channel was full or closed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	ins.timeouts, err = m.Int64Counter(
		"bounded.channel.timeouts",
		metric.WithDescription("Total bounded waits abandoned before completing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timeouts counter: %w", err)
	}

	return ins, nil
}

// The methods below accept a nil receiver so uninstrumented channels pay
// only a nil check.

func (ins *instruments) push(n int) {
	if ins == nil {
		return
	}
	ctx := context.Background()
	ins.pushed.Add(ctx, int64(n), ins.attrs)
	ins.size.Add(ctx, int64(n), ins.attrs)
}

func (ins *instruments) pop(n int) {
	if ins == nil || n == 0 {
		return
	}
	ctx := context.Background()
	ins.popped.Add(ctx, int64(n), ins.attrs)
	ins.size.Add(ctx, -int64(n), ins.attrs)
}

func (ins *instruments) reject() {
	if ins == nil {
		return
	}
	ins.rejected.Add(context.Background(), 1, ins.attrs)
}

func (ins *instruments) timeout() {
	if ins == nil {
		return
	}
	ins.timeouts.Add(context.Background(), 1, ins.attrs)
}
