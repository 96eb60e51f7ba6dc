package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-crypto-trader/internal/types"
)

// sixteenCloses is the shared fixture: a rally from 11 to 21 followed by
// a five-bar pullback.
func sixteenCloses() []float64 {
	return []float64{11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 19, 18, 17, 16, 15}
}

func sixteenCandles() []types.Candle {
	closes := sixteenCloses()
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			OpenTime: int64(i) * 3600_000,
			Open:     c - 0.5,
			High:     c + 1.0,
			Low:      c - 1.0,
			Close:    c,
			Volume:   100,
		}
	}
	return candles
}

func TestSMA(t *testing.T) {
	out, err := SMA(sixteenCloses(), 5)
	require.NoError(t, err)
	require.Len(t, out, 12)
	assert.InDelta(t, 13.0, out[0], 1e-9)
	// Last window covers the pullback 19, 18, 17, 16, 15.
	assert.InDelta(t, 17.0, out[len(out)-1], 1e-9)
}

func TestSMAInsufficientData(t *testing.T) {
	_, err := SMA([]float64{1, 2, 3}, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = SMA(nil, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSMAInvalidPeriod(t *testing.T) {
	_, err := SMA(sixteenCloses(), 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestEMA(t *testing.T) {
	out, err := EMA(sixteenCloses(), 5)
	require.NoError(t, err)
	require.Len(t, out, 12)
	// First point is the SMA seed.
	assert.InDelta(t, 13.0, out[0], 1e-9)
	// Hand-rolled second point: 13 + (16-13)*2/6.
	assert.InDelta(t, 14.0, out[1], 1e-9)
}

func TestEMAInsufficientData(t *testing.T) {
	_, err := EMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRSI(t *testing.T) {
	out, err := RSI(sixteenCloses(), 14)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	// The series is falling at the tail, so RSI must weaken.
	assert.Less(t, out[1], out[0])
}

func TestRSIMonotonicGains(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	out, err := RSI(rising, 5)
	require.NoError(t, err)
	for _, v := range out {
		assert.Equal(t, 100.0, v)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRSIExactPeriodLengthIsEmptyNotError(t *testing.T) {
	out, err := RSI(sixteenCloses()[:14], 14)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMACD(t *testing.T) {
	// 40 closes so the 12/26/9 default has room to warm up.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	cfg := MACDConfig{Fast: 12, Slow: 26, Signal: 9}
	out, err := MACD(closes, cfg)
	require.NoError(t, err)
	require.Len(t, out, 40-(26+9-1)+1)
	for _, p := range out {
		assert.InDelta(t, p.MACD-p.Signal, p.Histogram, 1e-12)
	}
}

func TestMACDInsufficientData(t *testing.T) {
	closes := make([]float64, 33)
	for i := range closes {
		closes[i] = float64(i)
	}
	// Threshold is slow+signal-1 = 34.
	_, err := MACD(closes, MACDConfig{Fast: 12, Slow: 26, Signal: 9})
	assert.ErrorIs(t, err, ErrInsufficientData)

	out, err := MACD(append(closes, 33), MACDConfig{Fast: 12, Slow: 26, Signal: 9})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestMACDRejectsFastNotBelowSlow(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i)
	}
	for _, cfg := range []MACDConfig{
		{Fast: 30, Slow: 26, Signal: 9},
		{Fast: 26, Slow: 26, Signal: 9},
	} {
		_, err := MACD(closes, cfg)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "fast %d slow %d", cfg.Fast, cfg.Slow)
	}
}

func TestATR(t *testing.T) {
	out, err := ATR(sixteenCandles(), 5)
	require.NoError(t, err)
	require.Len(t, out, 12)
	for _, v := range out {
		assert.Greater(t, v, 0.0)
	}
}

func TestATRTrueRangeUsesPreviousClose(t *testing.T) {
	// A gap down: the true range must span from the previous close, not
	// just the bar's own high-low.
	candles := []types.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 91, Low: 89, Close: 90},
	}
	out, err := ATR(candles, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	// TR0 = 2, TR1 = max(2, |91-100|, |89-100|) = 11.
	assert.InDelta(t, 6.5, out[0], 1e-9)
}

func TestATRInsufficientData(t *testing.T) {
	_, err := ATR(sixteenCandles()[:3], 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCloses(t *testing.T) {
	closes := Closes(sixteenCandles())
	assert.Equal(t, sixteenCloses(), closes)
}
