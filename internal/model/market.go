package model

import (
	"math"
	"time"
)

// Candle represents a single OHLCV bar. Immutable once fetched.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether every field of the candle is a non-negative finite number.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !c.Time.IsZero()
}

// Window is an ordered sequence of candles, ascending by timestamp.
// Recomputed each cycle; never persisted by the core.
type Window struct {
	Symbol  string
	Candles []Candle
}

// Len returns the number of candles in the window.
func (w Window) Len() int { return len(w.Candles) }

// Closes extracts the close prices in order.
func (w Window) Closes() []float64 {
	closes := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Last returns the most recent candle. Callers must check Len first.
func (w Window) Last() Candle { return w.Candles[len(w.Candles)-1] }

// FeatureVector is a fixed-dimension numeric array derived deterministically
// from a Window. Same window, same vector.
type FeatureVector []float64
