package model

import (
	"math"
	"testing"
	"time"
)

func TestCandleValid(t *testing.T) {
	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	good := Candle{Time: ts, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 12}
	if !good.Valid() {
		t.Error("expected valid candle")
	}

	cases := map[string]Candle{
		"negative close": {Time: ts, Open: 100, High: 101, Low: 99, Close: -1, Volume: 12},
		"NaN volume":     {Time: ts, Open: 100, High: 101, Low: 99, Close: 100, Volume: math.NaN()},
		"infinite high":  {Time: ts, Open: 100, High: math.Inf(1), Low: 99, Close: 100, Volume: 12},
		"zero time":      {Open: 100, High: 101, Low: 99, Close: 100, Volume: 12},
	}
	for name, c := range cases {
		if c.Valid() {
			t.Errorf("%s: expected invalid", name)
		}
	}
}

func TestDecisionValid(t *testing.T) {
	for _, d := range []Decision{Short, Flat, Long} {
		if !d.Valid() {
			t.Errorf("%s should be valid", d)
		}
	}
	if Decision("SIDEWAYS").Valid() || Decision("").Valid() {
		t.Error("unknown decisions should be invalid")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderPending.Terminal() {
		t.Error("PENDING is not terminal")
	}
	for _, s := range []OrderStatus{OrderFilled, OrderRejected, OrderFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestWindowCloses(t *testing.T) {
	ts := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	w := Window{Symbol: "BTC/USDT", Candles: []Candle{
		{Time: ts, Close: 100},
		{Time: ts.Add(time.Hour), Close: 101},
	}}
	closes := w.Closes()
	if len(closes) != 2 || closes[0] != 100 || closes[1] != 101 {
		t.Errorf("unexpected closes %v", closes)
	}
	if w.Last().Close != 101 {
		t.Errorf("expected last close 101, got %v", w.Last().Close)
	}
}
