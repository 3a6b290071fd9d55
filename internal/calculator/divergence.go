package calculator

import "errors"

// Divergence detects RSI divergence on the most recent bar by comparing it
// against the bar `lookback` positions earlier. Bullish: price made a lower
// low while RSI made a higher low. Bearish: price made a higher high while
// RSI made a lower high.
func Divergence(highs, lows, closes []float64, rsiPeriod, lookback int) (bullish, bearish bool, err error) {
	if lookback <= 0 {
		return false, false, errors.New("lookback must be positive")
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return false, false, errors.New("series length mismatch")
	}
	rsi, err := RSISeries(closes, rsiPeriod)
	if err != nil {
		return false, false, err
	}
	// RSI entry i corresponds to closes[rsiPeriod+i]; both compared bars need
	// an RSI value.
	if len(rsi) <= lookback {
		return false, false, errors.New("not enough data for divergence lookback")
	}

	cur := len(closes) - 1
	prev := cur - lookback
	curRSI := rsi[len(rsi)-1]
	prevRSI := rsi[len(rsi)-1-lookback]

	if lows[cur] < lows[prev] && curRSI > prevRSI {
		bullish = true
	}
	if highs[cur] > highs[prev] && curRSI < prevRSI {
		bearish = true
	}
	return bullish, bearish, nil
}
