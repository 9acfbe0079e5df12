package pool

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/boundedqueue/internal/pool"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
