package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Turbo503/EchoNode/internal/history"
	"github.com/Turbo503/EchoNode/internal/model"
)

// ErrDataUnavailable is returned when the remote service is unreachable or
// keeps returning malformed data after retries are exhausted.
var ErrDataUnavailable = errors.New("market data unavailable")

// Collector is the market data gateway: it fetches candles for one
// symbol/timeframe, normalizes them, and assembles fixed-length windows.
type Collector struct {
	fetcher   Fetcher
	store     *history.Store // optional local cache, nil to disable
	symbol    string
	timeframe string
	step      time.Duration
	retries   uint64
	now       func() time.Time
}

// NewCollector creates a gateway for one symbol/timeframe. store may be nil.
func NewCollector(fetcher Fetcher, store *history.Store, symbol, timeframe string, retries uint64) *Collector {
	return &Collector{
		fetcher:   fetcher,
		store:     store,
		symbol:    symbol,
		timeframe: timeframe,
		step:      TimeframeDuration(timeframe),
		retries:   retries,
		now:       time.Now,
	}
}

// Symbol returns the symbol this collector serves.
func (c *Collector) Symbol() string { return c.symbol }

// Window returns the most recent `size` candles covering at least
// size*timeframe of lookback: sorted ascending, duplicate timestamps removed
// (last write wins), no future-dated candles. The remote fetch is retried
// with exponential backoff; exhaustion yields ErrDataUnavailable.
func (c *Collector) Window(ctx context.Context, size int) (model.Window, error) {
	remote, err := c.fetchWithRetry(ctx, size)
	if err != nil {
		return model.Window{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	merged := remote
	if c.store != nil {
		cached, err := c.store.Load(c.symbol, c.timeframe)
		if err != nil {
			log.Printf("[WARN] load candle cache: %v", err)
		} else {
			// Remote data wins on timestamp collision.
			merged = append(cached, remote...)
		}
	}

	now := c.now()
	candles := Normalize(merged, now)
	if len(candles) == 0 {
		return model.Window{}, fmt.Errorf("%w: fetch returned no usable candles", ErrDataUnavailable)
	}
	if age := now.Sub(candles[len(candles)-1].Time); age > 3*c.step {
		return model.Window{}, fmt.Errorf("%w: feed is stale, last candle is %v old", ErrDataUnavailable, age.Truncate(time.Second))
	}

	if c.store != nil {
		if err := c.store.Append(c.symbol, c.timeframe, candles); err != nil {
			log.Printf("[WARN] append candle cache: %v", err)
		}
	}

	if len(candles) > size {
		candles = candles[len(candles)-size:]
	}
	return model.Window{Symbol: c.symbol, Candles: candles}, nil
}

func (c *Collector) fetchWithRetry(ctx context.Context, size int) ([]model.Candle, error) {
	var candles []model.Candle
	op := func() error {
		var err error
		candles, err = c.fetcher.FetchCandles(ctx, c.symbol, c.timeframe, size)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return candles, nil
}

// Normalize sorts candles ascending, drops invalid and future-dated entries,
// and removes duplicate timestamps keeping the later occurrence.
func Normalize(candles []model.Candle, now time.Time) []model.Candle {
	byTime := make(map[int64]model.Candle, len(candles))
	for _, c := range candles {
		if !c.Valid() {
			continue
		}
		if c.Time.After(now) {
			continue
		}
		byTime[c.Time.Unix()] = c // last write wins
	}
	out := make([]model.Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// TimeframeDuration maps a timeframe label to its bar duration.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
