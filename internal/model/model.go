package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
}

// Run is one producer/consumer harness run
type Run struct {
	gorm.Model
	StartedAt        time.Time      `json:"startedAt" gorm:"index"`
	DurationMs       int64          `json:"durationMs"`
	Capacity         int            `json:"capacity"`
	Producers        int            `json:"producers"`
	Consumers        int            `json:"consumers"`
	ItemsPerProducer int            `json:"itemsPerProducer"`
	Value            int            `json:"value"`
	Expected         int64          `json:"expected"`
	Consumed         int64          `json:"consumed"`
	OK               bool           `json:"ok" gorm:"index"`
	PerConsumer      datatypes.JSON `json:"perConsumer"` // consumed sum per consumer, in consumer order
}

func (*Run) TableName() string {
	return "runs"
}
