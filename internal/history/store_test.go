package history

import (
	"testing"
	"time"

	"github.com/Turbo503/EchoNode/internal/model"
)

func testCandles(start time.Time, closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10.5,
		}
	}
	return out
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	candles, err := store.Load("BTC/USDT", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 0 {
		t.Errorf("expected empty history, got %d candles", len(candles))
	}
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	in := testCandles(start, 100, 101, 102)

	if err := store.Append("BTC/USDT", "1h", in); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := store.Load("BTC/USDT", "1h")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(out))
	}
	for i := range in {
		if !out[i].Time.Equal(in[i].Time) || out[i].Close != in[i].Close || out[i].Volume != in[i].Volume {
			t.Errorf("candle %d mangled: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestAppendSkipsAlreadyStoredRows(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	if err := store.Append("BTC/USDT", "1h", testCandles(start, 100, 101)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	// Overlapping batch: the first two rows repeat, only the third is new.
	if err := store.Append("BTC/USDT", "1h", testCandles(start, 100, 101, 102)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	out, err := store.Load("BTC/USDT", "1h")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 candles after overlapping append, got %d", len(out))
	}
	if out[2].Close != 102 {
		t.Errorf("expected new row appended last, got close=%v", out[2].Close)
	}
}

func TestSymbolsKeepSeparateFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	if err := store.Append("BTC/USDT", "1h", testCandles(start, 100)); err != nil {
		t.Fatalf("append btc: %v", err)
	}
	if err := store.Append("ETH/USDT", "1h", testCandles(start, 2000)); err != nil {
		t.Fatalf("append eth: %v", err)
	}

	eth, err := store.Load("ETH/USDT", "1h")
	if err != nil {
		t.Fatalf("load eth: %v", err)
	}
	if len(eth) != 1 || eth[0].Close != 2000 {
		t.Errorf("symbol files crossed: %+v", eth)
	}
}
