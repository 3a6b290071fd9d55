package collector

import (
	"context"
	"time"

	"github.com/Turbo503/EchoNode/internal/exchange"
	"github.com/Turbo503/EchoNode/internal/model"
)

// BitunixFetcher implements Fetcher on top of the Bitunix REST client.
type BitunixFetcher struct {
	client *exchange.Client
}

// NewBitunixFetcher wraps an exchange client.
func NewBitunixFetcher(client *exchange.Client) *BitunixFetcher {
	return &BitunixFetcher{client: client}
}

func (f *BitunixFetcher) Name() string { return "bitunix" }

func (f *BitunixFetcher) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	klines, err := f.client.FetchKlines(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	candles := make([]model.Candle, len(klines))
	for i, k := range klines {
		candles[i] = model.Candle{
			Time:   time.UnixMilli(k.Timestamp).UTC(),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		}
	}
	return candles, nil
}
