package types

// MarketSnapshot is the market-data slice of a prompt context.
type MarketSnapshot struct {
	Interval   string     `json:"interval"`
	LastCandle *Candle    `json:"last_candle,omitempty"`
	Price      float64    `json:"price"`
	OrderBook  *OrderBook `json:"order_book,omitempty"`
}

// MACDSnapshot is the latest MACD triple with its periods.
type MACDSnapshot struct {
	Fast      int     `json:"fast"`
	Slow      int     `json:"slow"`
	SignalP   int     `json:"signal_period"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IndicatorSnapshot carries the latest value of each computed indicator.
// Nil fields were not computed and must be omitted from the prompt, not
// rendered empty.
type IndicatorSnapshot struct {
	SMA       *float64      `json:"sma,omitempty"`
	SMAPeriod int           `json:"sma_period,omitempty"`
	EMA       *float64      `json:"ema,omitempty"`
	EMAPeriod int           `json:"ema_period,omitempty"`
	RSI       *float64      `json:"rsi,omitempty"`
	RSIPeriod int           `json:"rsi_period,omitempty"`
	MACD      *MACDSnapshot `json:"macd,omitempty"`
	ATR       *float64      `json:"atr,omitempty"`
	ATRPeriod int           `json:"atr_period,omitempty"`
}

// RiskSummary is the risk-parameter slice of a prompt context.
type RiskSummary struct {
	MaxLossPerTradePct  float64 `json:"max_loss_per_trade_pct"`
	MinRiskBenefitRatio float64 `json:"min_risk_benefit_ratio"`
}

// PromptContext is everything the orchestrator renders into one prompt.
// It is assembled fresh each tick and never persisted beyond being
// embedded in the resulting decision record.
type PromptContext struct {
	Symbol       string             `json:"symbol"`
	Market       *MarketSnapshot    `json:"market,omitempty"`
	Indicators   *IndicatorSnapshot `json:"indicators,omitempty"`
	Risk         *RiskSummary       `json:"risk,omitempty"`
	Account      *AccountInfo       `json:"account,omitempty"`
	Headlines    []string           `json:"headlines,omitempty"`
	StrategyHint string             `json:"strategy_hint,omitempty"`
}

// CompletionOptions parameterize one provider call.
type CompletionOptions struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	SystemMessage string
}
