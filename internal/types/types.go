package types

import "time"

// Candle is one OHLCV bar, oldest-first in any series.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// Instrument is a tradable pair plus the exchange filters that constrain
// every order on it. Identity is the symbol.
type Instrument struct {
	ID                int64   `json:"id" yaml:"id"`
	Symbol            string  `json:"symbol" yaml:"symbol"`
	BaseAsset         string  `json:"base_asset" yaml:"base_asset"`
	QuoteAsset        string  `json:"quote_asset" yaml:"quote_asset"`
	Active            bool    `json:"active" yaml:"active"`
	MarginEnabled     bool    `json:"margin_enabled" yaml:"margin_enabled"`
	MarginIsolated    bool    `json:"margin_isolated" yaml:"margin_isolated"`
	PricePrecision    int     `json:"price_precision" yaml:"price_precision"`
	QuantityPrecision int     `json:"quantity_precision" yaml:"quantity_precision"`
	MinTradeSize      float64 `json:"min_trade_size" yaml:"min_trade_size"`
	MaxTradeSize      float64 `json:"max_trade_size" yaml:"max_trade_size"`
	TickSize          float64 `json:"tick_size" yaml:"tick_size"`
	StepSize          float64 `json:"step_size" yaml:"step_size"`
	StrategyHint      string  `json:"strategy_hint,omitempty" yaml:"strategy_hint,omitempty"`
}

// Action is the decision vocabulary the orchestrator accepts from a model.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionHold     Action = "HOLD"
	ActionNoAction Action = "NO_ACTION"
)

// Valid reports whether a is one of the four recognized actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionNoAction:
		return true
	}
	return false
}

// Decision is the structured outcome of one orchestrator call. Created
// exactly once per tick per instrument and persisted append-only.
type Decision struct {
	InstrumentID int64     `json:"instrument_id"`
	Symbol       string    `json:"symbol"`
	Action       Action    `json:"action"`
	Reason       string    `json:"reason"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Prompt       string    `json:"prompt"`
	RawResponse  string    `json:"raw_response"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ticker is the current price snapshot for a symbol.
type Ticker struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// OrderBook is a depth snapshot; optional input to the prompt context.
type OrderBook struct {
	Bids [][2]float64 `json:"bids"`
	Asks [][2]float64 `json:"asks"`
}

// OrderType enumerates the order shapes the planner can emit.
type OrderType string

const (
	OrderMarket          OrderType = "MARKET"
	OrderLimit           OrderType = "LIMIT"
	OrderStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderBracket         OrderType = "OCO"
)

// TradeMode selects the account the order is routed through.
type TradeMode string

const (
	ModeSpot   TradeMode = "SPOT"
	ModeMargin TradeMode = "MARGIN"
)

// OrderPlan is a fully normalized order ready for submission: quantity is
// step-aligned, prices are tick-aligned. Nil price fields mean "not
// applicable for this order type".
type OrderPlan struct {
	Symbol         string    `json:"symbol"`
	Side           Action    `json:"side"`
	Type           OrderType `json:"type"`
	Mode           TradeMode `json:"mode"`
	Quantity       float64   `json:"quantity"`
	LimitPrice     *float64  `json:"limit_price,omitempty"`
	StopPrice      *float64  `json:"stop_price,omitempty"`
	StopLimitPrice *float64  `json:"stop_limit_price,omitempty"`
}

// OrderResult is what the exchange gateway reports back after placement.
type OrderResult struct {
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Status        string  `json:"status"`
	Price         float64 `json:"price"`
	ExecutedQty   float64 `json:"executed_qty"`
	CumQuoteQty   float64 `json:"cum_quote_qty"`
	TransactTime  int64   `json:"transact_time"`
}

// Transaction is the append-only record of a submitted order.
type Transaction struct {
	InstrumentID  int64     `json:"instrument_id"`
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Side          Action    `json:"side"`
	Mode          TradeMode `json:"mode"`
	Price         float64   `json:"price"`
	Quantity      float64   `json:"quantity"`
	QuoteValue    float64   `json:"quote_value"`
	Status        string    `json:"status"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// Position is an open holding summarized for the prompt context.
type Position struct {
	Quantity   float64 `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
}

// AccountInfo is the account snapshot rendered into the prompt.
type AccountInfo struct {
	QuoteBalance float64   `json:"quote_balance"`
	Position     *Position `json:"position,omitempty"`
}

// StepOutcome tags the terminal state of one planner pass.
type StepOutcome string

const (
	OutcomeSubmitted StepOutcome = "SUBMITTED"
	OutcomeSkipped   StepOutcome = "SKIPPED"
)

// StepResult reports what one planner pass over an instrument did.
type StepResult struct {
	Symbol   string       `json:"symbol"`
	Outcome  StepOutcome  `json:"outcome"`
	Reason   string       `json:"reason"`
	Decision *Decision    `json:"decision,omitempty"`
	Price    float64      `json:"price,omitempty"`
	Plan     *OrderPlan   `json:"plan,omitempty"`
	Order    *OrderResult `json:"order,omitempty"`
}
