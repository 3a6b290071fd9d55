package recorder

import (
	"time"

	"github.com/Turbo503/EchoNode/internal/model"
)

// CycleRecord holds the outcome of one decision cycle.
type CycleRecord struct {
	Boundary   time.Time
	Symbol     string
	Decision   model.Decision
	ModelName  string
	Close      float64
	OrderCount int
	Err        string
}

// OrderRecord captures a single order's terminal outcome.
type OrderRecord struct {
	ClientID   string
	ExchangeID string
	Symbol     string
	Side       model.OrderSide
	Quantity   string
	Status     model.OrderStatus
}

// RetrainRecord captures one retrain pipeline run.
type RetrainRecord struct {
	Outcome  string
	Version  int
	Samples  int
	Duration time.Duration
	Err      string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordCycle(rec *CycleRecord) error
	RecordOrder(rec *OrderRecord) error
	RecordRetrain(rec *RetrainRecord) error
	Close() error
}
