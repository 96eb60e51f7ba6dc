package engine

import (
	"fmt"

	"ai-crypto-trader/internal/store"
	"ai-crypto-trader/internal/types"
)

// volatilityExceeded applies the ATR gate: ATR expressed as a
// percentage of the current price against the configured ceiling.
func volatilityExceeded(atr, price float64, risk store.RiskConfig) (bool, float64) {
	if !risk.UseVolatilityCheck || price <= 0 {
		return false, 0
	}
	atrPct := atr / price * 100
	return atrPct > risk.MaxATRPctOfPrice, atrPct
}

// rrEvaluation is the outcome of one risk:reward check.
type rrEvaluation struct {
	Applied bool
	Stop    float64
	Target  float64
	Risk    float64
	Reward  float64
	Ratio   float64
}

// evaluateRiskReward derives candidate stop and target prices from the
// entry and accepts or rejects the trade. The gate only applies when
// stop-loss and take-profit are both enabled with positive percentages
// and a positive minimum ratio is configured; otherwise it passes
// through. A rejection returns a non-empty reason.
func evaluateRiskReward(side types.Action, entry, tickSize float64, orders store.OrderStrategyConfig, minRatio float64) (rrEvaluation, string) {
	ev := rrEvaluation{}
	if !orders.UseStopLoss || !orders.UseTakeProfit ||
		orders.StopLossPct <= 0 || orders.TakeProfitPct <= 0 || minRatio <= 0 {
		return ev, ""
	}
	ev.Applied = true

	switch side {
	case types.ActionBuy:
		ev.Stop = RoundToTick(entry*(1-orders.StopLossPct/100), tickSize)
		ev.Target = RoundToTick(entry*(1+orders.TakeProfitPct/100), tickSize)
		if ev.Stop >= entry || ev.Target <= entry {
			return ev, fmt.Sprintf("stop %.8f / target %.8f not on the correct side of entry %.8f for BUY", ev.Stop, ev.Target, entry)
		}
		ev.Risk = entry - ev.Stop
		ev.Reward = ev.Target - entry
	case types.ActionSell:
		ev.Stop = RoundToTick(entry*(1+orders.StopLossPct/100), tickSize)
		ev.Target = RoundToTick(entry*(1-orders.TakeProfitPct/100), tickSize)
		if ev.Stop <= entry || ev.Target >= entry {
			return ev, fmt.Sprintf("stop %.8f / target %.8f not on the correct side of entry %.8f for SELL", ev.Stop, ev.Target, entry)
		}
		ev.Risk = ev.Stop - entry
		ev.Reward = entry - ev.Target
	default:
		return ev, fmt.Sprintf("risk:reward gate does not apply to side %s", side)
	}

	if ev.Risk <= 0 || ev.Reward <= 0 {
		return ev, fmt.Sprintf("non-positive risk %.8f or reward %.8f", ev.Risk, ev.Reward)
	}
	ev.Ratio = ev.Reward / ev.Risk
	if ev.Ratio < minRatio {
		return ev, fmt.Sprintf("risk:reward %.2f below minimum %.2f", ev.Ratio, minRatio)
	}
	return ev, ""
}
