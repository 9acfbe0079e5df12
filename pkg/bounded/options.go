package bounded

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/boundedqueue/pkg/bounded"

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a Channel at construction.
type Option func(*config)

type config struct {
	name   string
	logger Logger
	meter  metric.Meter
}

// WithName labels the channel in logs and metric attributes.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger used for lifecycle messages. The push and pop
// paths never log.
func WithLogger(l Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records channel metrics on the global OTel meter provider
// (a no-op unless the process installed one).
func WithMetrics() Option {
	return func(c *config) {
		c.meter = otel.Meter(instrumentationName)
	}
}

// WithMeter records channel metrics on the given meter.
func WithMeter(m metric.Meter) Option {
	return func(c *config) {
		c.meter = m
	}
}
