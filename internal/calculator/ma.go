package calculator

import (
	"errors"
	"math"
)

// CalculateSMA computes the simple moving average of the given prices over the
// specified period, using the most recent `period` values.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// Returns computes the sequence of simple period-over-period returns.
// Output length is len(prices)-1.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	rets := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			rets[i-1] = 0
			continue
		}
		rets[i-1] = prices[i]/prices[i-1] - 1
	}
	return rets
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
