// Package ta computes technical indicator series over candle data. All
// functions are pure: same input, same output, no shared state.
//
// Results are suffix-aligned: the value at index i of an output series
// corresponds to the candle at index i+warmup of the input, where warmup
// is the number of leading candles the indicator consumes. Callers must
// never assume index 0 of an output lines up with index 0 of the input.
//
// Too little input is a tagged outcome, not an empty slice: every
// function returns ErrInsufficientData when the series is shorter than
// the indicator's minimum, so a caller can tell "cannot compute" apart
// from "computed nothing".
package ta

import (
	"errors"
	"fmt"
	"math"

	"ai-crypto-trader/internal/types"
)

// ErrInsufficientData reports that the input series is shorter than the
// indicator's minimum length for the given period(s).
var ErrInsufficientData = errors.New("ta: insufficient data for period")

// ErrInvalidPeriod reports a period outside the indicator's valid
// range, such as a non-positive period or a MACD fast period that is
// not below the slow one.
var ErrInvalidPeriod = errors.New("ta: period must be positive")

// Closes extracts the close prices of a candle series, oldest first.
func Closes(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA returns the simple moving average series. The result has
// len(values)-period+1 points; point i covers values[i : i+period].
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMA returns the exponential moving average series seeded with the SMA
// of the first period values. The result has len(values)-period+1 points.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	out = append(out, ema)
	k := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = (v-ema)*k + ema
		out = append(out, ema)
	}
	return out, nil
}

// RSI returns the Wilder relative strength index series. The result has
// len(values)-period points, each in [0, 100].
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(values)-period)
	if len(values) == period {
		return out, nil
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACDConfig holds the three MACD periods.
type MACDConfig struct {
	Fast   int
	Slow   int
	Signal int
}

// MACDPoint is one point of the MACD triple; Histogram is always
// MACD minus Signal.
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the moving average convergence/divergence series. Both
// internal moving averages are exponential. The minimum input length is
// slow+signal-1; the result has len(values)-(slow+signal-1)+1 points.
func MACD(values []float64, cfg MACDConfig) ([]MACDPoint, error) {
	if cfg.Fast <= 0 || cfg.Slow <= 0 || cfg.Signal <= 0 {
		return nil, ErrInvalidPeriod
	}
	if cfg.Fast >= cfg.Slow {
		// The head-alignment below assumes the fast EMA series is the
		// longer of the two.
		return nil, fmt.Errorf("%w: macd fast period %d must be below slow period %d", ErrInvalidPeriod, cfg.Fast, cfg.Slow)
	}
	if len(values) < cfg.Slow+cfg.Signal-1 {
		return nil, ErrInsufficientData
	}
	fast, err := EMA(values, cfg.Fast)
	if err != nil {
		return nil, err
	}
	slow, err := EMA(values, cfg.Slow)
	if err != nil {
		return nil, err
	}
	// The fast EMA is longer; drop its head so both align on the slow warmup.
	fast = fast[len(fast)-len(slow):]
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i] - slow[i]
	}
	signal, err := EMA(macdLine, cfg.Signal)
	if err != nil {
		return nil, err
	}
	macdTail := macdLine[len(macdLine)-len(signal):]
	out := make([]MACDPoint, len(signal))
	for i := range signal {
		out[i] = MACDPoint{
			MACD:      macdTail[i],
			Signal:    signal[i],
			Histogram: macdTail[i] - signal[i],
		}
	}
	return out, nil
}

// ATR returns the average true range series over full candles. True
// range is max(high-low, |high-prevClose|, |low-prevClose|); the first
// candle has no previous close and contributes high-low. Values are
// smoothed with the Wilder recurrence; the result has
// len(candles)-period+1 points.
func ATR(candles []types.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < period {
		return nil, ErrInsufficientData
	}
	trs := make([]float64, len(candles))
	trs[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		trs[i] = tr
	}
	out := make([]float64, 0, len(candles)-period+1)
	sum := 0.0
	for _, tr := range trs[:period] {
		sum += tr
	}
	atr := sum / float64(period)
	out = append(out, atr)
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
		out = append(out, atr)
	}
	return out, nil
}
