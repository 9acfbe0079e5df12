// Package convert maps between GORM models and core types
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OCAP2/boundedqueue/internal/model"
	"github.com/OCAP2/boundedqueue/pkg/core"
	"gorm.io/datatypes"
)

// RunToModel converts a core.RunResult to a GORM Run.
// The model ID is left zero so the database assigns it.
func RunToModel(r core.RunResult) (model.Run, error) {
	perConsumer := r.PerConsumer
	if perConsumer == nil {
		perConsumer = []int64{}
	}
	raw, err := json.Marshal(perConsumer)
	if err != nil {
		return model.Run{}, fmt.Errorf("encoding per-consumer counts: %w", err)
	}

	return model.Run{
		StartedAt:        r.StartedAt,
		DurationMs:       r.Duration.Milliseconds(),
		Capacity:         r.Capacity,
		Producers:        r.Producers,
		Consumers:        r.Consumers,
		ItemsPerProducer: r.ItemsPerProducer,
		Value:            r.Value,
		Expected:         r.Expected,
		Consumed:         r.Consumed,
		OK:               r.OK(),
		PerConsumer:      datatypes.JSON(raw),
	}, nil
}

// RunToCore converts a GORM Run to a core.RunResult.
func RunToCore(m model.Run) (core.RunResult, error) {
	var perConsumer []int64
	if len(m.PerConsumer) > 0 {
		if err := json.Unmarshal(m.PerConsumer, &perConsumer); err != nil {
			return core.RunResult{}, fmt.Errorf("decoding per-consumer counts of run %d: %w", m.ID, err)
		}
	}

	return core.RunResult{
		ID:               m.ID,
		StartedAt:        m.StartedAt,
		Duration:         time.Duration(m.DurationMs) * time.Millisecond,
		Capacity:         m.Capacity,
		Producers:        m.Producers,
		Consumers:        m.Consumers,
		ItemsPerProducer: m.ItemsPerProducer,
		Value:            m.Value,
		Expected:         m.Expected,
		Consumed:         m.Consumed,
		PerConsumer:      perConsumer,
	}, nil
}
