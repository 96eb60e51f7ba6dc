// Package engine is the per-instrument trading pipeline: market data,
// indicators, gates, AI decision, order sizing and submission.
package engine

import (
	"github.com/shopspring/decimal"
)

// FloorToStep floors qty to the nearest multiple of step. Decimal
// arithmetic avoids the float drift that makes qty mod step nonzero
// after a plain division.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	out, _ := q.Div(s).Floor().Mul(s).Float64()
	return out
}

// RoundToTick rounds price to the nearest multiple of tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	out, _ := p.Div(t).Round(0).Mul(t).Float64()
	return out
}

// AlignedToStep reports whether qty is an exact multiple of step.
func AlignedToStep(qty, step float64) bool {
	if step <= 0 {
		return true
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	return q.Mod(s).IsZero()
}
