package calculator

import "errors"

// CalculateRSI computes the Wilder-smoothed RSI over the given period from a
// close-price series. Requires at least period+1 prices.
func CalculateRSI(closes []float64, period int) (float64, error) {
	series, err := RSISeries(closes, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// RSISeries computes the Wilder-smoothed RSI at every index from period
// onward. Output length is len(closes)-period; entry i corresponds to
// closes[period+i].
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return nil, errors.New("not enough data for RSI calculation")
	}

	// Initial average gain/loss over the first `period` changes.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	series := make([]float64, 0, len(closes)-period)
	series = append(series, rsiFrom(avgGain, avgLoss))

	// Wilder smoothing for remaining bars.
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series = append(series, rsiFrom(avgGain, avgLoss))
	}
	return series, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
