package collector

import (
	"context"
	"time"

	"github.com/Turbo503/EchoNode/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Candles []model.Candle
	Err     error
	Calls   int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, _, _ string, limit int) ([]model.Candle, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Candles != nil {
		return m.Candles, nil
	}
	return GenerateCandles(100.0, limit, time.Hour), nil
}

// GenerateCandles produces a synthetic gently-rising series ending now,
// spaced by step.
func GenerateCandles(basePrice float64, count int, step time.Duration) []model.Candle {
	end := time.Now().UTC().Truncate(step)
	candles := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		candles[i] = model.Candle{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000,
		}
	}
	return candles
}
