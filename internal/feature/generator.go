package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/Turbo503/EchoNode/internal/calculator"
	"github.com/Turbo503/EchoNode/internal/model"
)

// ErrInsufficientHistory is returned when the window holds fewer candles than
// the minimum required for feature computation. The generator never pads with
// synthetic data.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// Dim is the fixed dimension of every generated feature vector.
const Dim = 10

// Feature vector layout.
const (
	idxLastReturn = iota
	idxMeanReturn
	idxVolatility
	idxSMADeviation
	idxSMASpread
	idxRSI
	idxRSISlope
	idxBullDivergence
	idxBearDivergence
	idxVolumeRatio
)

// Generator derives a fixed-shape feature vector from a candle window. Pure:
// identical windows always yield bit-identical vectors.
type Generator struct {
	MinCandles int // minimum window length, also the SMA period
	FastSMA    int
	RSIPeriod  int
	Lookback   int // divergence lookback bars
}

// NewGenerator returns a generator with the standard periods: RSI(14),
// divergence lookback 20, fast SMA over a quarter of the window.
func NewGenerator(minCandles int) *Generator {
	return &Generator{
		MinCandles: minCandles,
		FastSMA:    minCandles / 4,
		RSIPeriod:  14,
		Lookback:   20,
	}
}

// Generate computes the feature vector for the window.
func (g *Generator) Generate(w model.Window) (model.FeatureVector, error) {
	if w.Len() < g.MinCandles {
		return nil, fmt.Errorf("%w: have %d candles, need %d", ErrInsufficientHistory, w.Len(), g.MinCandles)
	}

	closes := w.Closes()
	highs := make([]float64, w.Len())
	lows := make([]float64, w.Len())
	volumes := make([]float64, w.Len())
	for i, c := range w.Candles {
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	vec := make(model.FeatureVector, Dim)

	rets := calculator.Returns(closes)
	vec[idxLastReturn] = rets[len(rets)-1]
	mean, std := calculator.MeanStd(rets)
	vec[idxMeanReturn] = mean
	vec[idxVolatility] = std

	lastClose := closes[len(closes)-1]
	slow, err := calculator.CalculateSMA(closes, g.MinCandles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	fast, err := calculator.CalculateSMA(closes, g.FastSMA)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	if slow != 0 {
		vec[idxSMADeviation] = lastClose/slow - 1
		vec[idxSMASpread] = fast/slow - 1
	}

	rsiSeries, err := calculator.RSISeries(closes, g.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	vec[idxRSI] = rsiSeries[len(rsiSeries)-1] / 100.0
	if len(rsiSeries) >= 2 {
		vec[idxRSISlope] = (rsiSeries[len(rsiSeries)-1] - rsiSeries[len(rsiSeries)-2]) / 100.0
	}

	bull, bear, err := calculator.Divergence(highs, lows, closes, g.RSIPeriod, g.Lookback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	if bull {
		vec[idxBullDivergence] = 1
	}
	if bear {
		vec[idxBearDivergence] = 1
	}

	meanVol, _ := calculator.MeanStd(volumes)
	if meanVol > 0 {
		vec[idxVolumeRatio] = volumes[len(volumes)-1]/meanVol - 1
	}

	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %d is not finite", i)
		}
	}
	return vec, nil
}

// TrendDeviation exposes the close/slow-SMA deviation component, used by the
// placeholder model.
func TrendDeviation(vec model.FeatureVector) float64 { return vec[idxSMADeviation] }

// SMASpread exposes the fast/slow SMA spread component.
func SMASpread(vec model.FeatureVector) float64 { return vec[idxSMASpread] }

// RSI exposes the normalized RSI component (0..1).
func RSI(vec model.FeatureVector) float64 { return vec[idxRSI] }
