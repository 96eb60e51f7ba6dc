// Package llm holds the AI decision orchestrator: prompt rendering,
// the prioritized provider fallback chain, and response parsing.
package llm

import (
	"fmt"
	"strings"

	"ai-crypto-trader/internal/types"
)

// BuildPrompt renders one prompt context into the user message sent to
// every provider in the chain. Sections whose data was not computed are
// omitted entirely rather than rendered with placeholders.
func BuildPrompt(pctx types.PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing the crypto pair %s.\n\n", pctx.Symbol)

	if m := pctx.Market; m != nil {
		fmt.Fprintf(&b, "Market data (interval %s):\n", m.Interval)
		fmt.Fprintf(&b, "- Current price: %.8f\n", m.Price)
		if c := m.LastCandle; c != nil {
			fmt.Fprintf(&b, "- Last candle: open=%.8f high=%.8f low=%.8f close=%.8f volume=%.4f\n",
				c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		if ob := m.OrderBook; ob != nil && len(ob.Bids) > 0 && len(ob.Asks) > 0 {
			fmt.Fprintf(&b, "- Best bid: %.8f (qty %.4f), best ask: %.8f (qty %.4f)\n",
				ob.Bids[0][0], ob.Bids[0][1], ob.Asks[0][0], ob.Asks[0][1])
		}
		b.WriteString("\n")
	}

	if ind := pctx.Indicators; ind != nil {
		b.WriteString("Technical indicators:\n")
		if ind.SMA != nil {
			fmt.Fprintf(&b, "- SMA(%d): %.8f\n", ind.SMAPeriod, *ind.SMA)
		}
		if ind.EMA != nil {
			fmt.Fprintf(&b, "- EMA(%d): %.8f\n", ind.EMAPeriod, *ind.EMA)
		}
		if ind.RSI != nil {
			fmt.Fprintf(&b, "- RSI(%d): %.2f\n", ind.RSIPeriod, *ind.RSI)
		}
		if m := ind.MACD; m != nil {
			fmt.Fprintf(&b, "- MACD(%d,%d,%d): macd=%.8f signal=%.8f histogram=%.8f\n",
				m.Fast, m.Slow, m.SignalP, m.MACD, m.Signal, m.Histogram)
		}
		if ind.ATR != nil {
			fmt.Fprintf(&b, "- ATR(%d): %.8f\n", ind.ATRPeriod, *ind.ATR)
		}
		b.WriteString("\n")
	}

	if r := pctx.Risk; r != nil {
		b.WriteString("Risk parameters:\n")
		fmt.Fprintf(&b, "- Max loss per trade: %.2f%%\n", r.MaxLossPerTradePct)
		fmt.Fprintf(&b, "- Minimum risk:benefit ratio: %.2f\n", r.MinRiskBenefitRatio)
		b.WriteString("\n")
	}

	if a := pctx.Account; a != nil {
		b.WriteString("Account:\n")
		fmt.Fprintf(&b, "- Available quote balance: %.2f\n", a.QuoteBalance)
		if p := a.Position; p != nil {
			fmt.Fprintf(&b, "- Open position: %.8f @ %.8f\n", p.Quantity, p.EntryPrice)
		}
		b.WriteString("\n")
	}

	if len(pctx.Headlines) > 0 {
		b.WriteString("Recent headlines:\n")
		for _, h := range pctx.Headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	if pctx.StrategyHint != "" {
		fmt.Fprintf(&b, "Strategy hint: %s\n\n", pctx.StrategyHint)
	}

	b.WriteString("Based on the data above, decide whether to BUY, SELL, HOLD or take NO_ACTION.\n")
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("DECISION: <BUY|SELL|HOLD|NO_ACTION>. JUSTIFICACION: <one short paragraph>")

	return b.String()
}
