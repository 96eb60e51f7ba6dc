package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/store"
	"ai-crypto-trader/internal/ta"
	"ai-crypto-trader/internal/types"
)

// Planner runs the per-instrument pipeline. Every pass ends in exactly
// one of two terminal states: an order submitted, or a skip with a
// logged reason.
type Planner struct {
	cfg       *store.Config
	md        interfaces.MarketData
	decider   interfaces.Decider
	exchange  interfaces.Exchange
	txs       interfaces.TransactionStore
	headlines interfaces.HeadlineSource
	alerts    interfaces.AlertPublisher
}

var _ interfaces.Planner = (*Planner)(nil)

// New builds a planner. headlines and alerts may be nil.
func New(cfg *store.Config, md interfaces.MarketData, decider interfaces.Decider, exchange interfaces.Exchange, txs interfaces.TransactionStore, headlines interfaces.HeadlineSource, alerts interfaces.AlertPublisher) *Planner {
	return &Planner{
		cfg:       cfg,
		md:        md,
		decider:   decider,
		exchange:  exchange,
		txs:       txs,
		headlines: headlines,
		alerts:    alerts,
	}
}

// requiredLookback is the candle count below which no indicator set is
// computable and the pass skips before any AI call.
func (p *Planner) requiredLookback() int {
	s := p.cfg.Strategy
	lookback := s.SMAPeriod
	for _, n := range []int{s.EMAPeriod, s.RSIPeriod + 1, s.MACDSlow + s.MACDSignal - 1, p.cfg.Risk.ATRPeriod + 1} {
		if n > lookback {
			lookback = n
		}
	}
	return lookback
}

func skip(symbol, reason string) *types.StepResult {
	return &types.StepResult{Symbol: symbol, Outcome: types.OutcomeSkipped, Reason: reason}
}

// Step executes one full pass for one instrument.
func (p *Planner) Step(ctx context.Context, inst types.Instrument) (*types.StepResult, error) {
	logger.Debug(ctx, "Starting trading step", "symbol", inst.Symbol)

	// 1. Data sufficiency gate.
	candles, err := p.md.Candles(ctx, inst.Symbol, p.cfg.Strategy.KlinesInterval, p.cfg.Strategy.KlinesLimit)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "symbol", inst.Symbol)
		return nil, err
	}
	if lookback := p.requiredLookback(); len(candles) < lookback {
		logger.Warn(ctx, "Insufficient candle data, skipping instrument",
			"symbol", inst.Symbol, "received", len(candles), "required", lookback)
		return skip(inst.Symbol, fmt.Sprintf("insufficient candles: %d < %d", len(candles), lookback)), nil
	}

	// 2. Indicators. Insufficiency aborts the pass without error.
	snapshot, atr, err := p.computeIndicators(candles)
	if err != nil {
		if errors.Is(err, ta.ErrInsufficientData) {
			logger.Debug(ctx, "Indicator data insufficient, skipping instrument", "symbol", inst.Symbol, "detail", err.Error())
			return skip(inst.Symbol, "insufficient data for indicators"), nil
		}
		return nil, err
	}

	ticker, err := p.md.Ticker(ctx, inst.Symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch ticker", err, "symbol", inst.Symbol)
		return nil, err
	}
	price := ticker.Price
	if price <= 0 {
		// Halted or delisted symbols report a zero price; sizing
		// against it would divide by zero.
		logger.Warn(ctx, "Non-positive ticker price, skipping instrument",
			"symbol", inst.Symbol, "price", price)
		return skip(inst.Symbol, fmt.Sprintf("non-positive ticker price %g", price)), nil
	}

	// 3. Volatility gate.
	if exceeded, atrPct := volatilityExceeded(atr, price, p.cfg.Risk); exceeded {
		logger.Risk(ctx, inst.Symbol, "VOLATILITY_GATE",
			"atr_pct", atrPct, "max_atr_pct", p.cfg.Risk.MaxATRPctOfPrice, "price", price)
		return skip(inst.Symbol, fmt.Sprintf("volatility %.2f%% above limit %.2f%%", atrPct, p.cfg.Risk.MaxATRPctOfPrice)), nil
	}

	// 4. AI decision.
	pctx := p.buildPromptContext(ctx, inst, candles, price, snapshot)
	decision, err := p.decider.GetDecision(ctx, pctx, inst.ID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision orchestrator failed", err, "symbol", inst.Symbol)
		return nil, err
	}
	logger.Decision(ctx, inst.Symbol, string(decision.Action), decision.Provider, decision.Reason)

	if decision.Action == types.ActionHold || decision.Action == types.ActionNoAction {
		return &types.StepResult{
			Symbol:   inst.Symbol,
			Outcome:  types.OutcomeSkipped,
			Reason:   fmt.Sprintf("decision %s: %s", decision.Action, decision.Reason),
			Decision: &decision,
			Price:    price,
		}, nil
	}

	// 5. Quantity derivation.
	qty := FloorToStep(p.cfg.Risk.DefaultTradeAmount/price, inst.StepSize)
	if qty <= 0 {
		logger.Risk(ctx, inst.Symbol, "QUANTITY_TOO_SMALL",
			"notional", p.cfg.Risk.DefaultTradeAmount, "price", price, "step_size", inst.StepSize)
		return skip(inst.Symbol, "quantity floors to zero"), nil
	}
	if qty < inst.MinTradeSize || (inst.MaxTradeSize > 0 && qty > inst.MaxTradeSize) {
		logger.Risk(ctx, inst.Symbol, "QUANTITY_OUT_OF_BOUNDS",
			"qty", qty, "min", inst.MinTradeSize, "max", inst.MaxTradeSize)
		return skip(inst.Symbol, fmt.Sprintf("quantity %.8f outside [%.8f, %.8f]", qty, inst.MinTradeSize, inst.MaxTradeSize)), nil
	}

	// 6. Entry price derivation.
	plan, entry := p.buildEntryPlan(inst, decision.Action, qty, price)

	// 7. Risk:reward gate.
	if ev, reject := evaluateRiskReward(decision.Action, entry, inst.TickSize, p.cfg.Orders, p.cfg.Risk.MinRiskBenefitRatio); reject != "" {
		logger.Risk(ctx, inst.Symbol, "RISK_REWARD_REJECTED",
			"entry", entry, "stop", ev.Stop, "target", ev.Target, "ratio", ev.Ratio, "detail", reject)
		return skip(inst.Symbol, reject), nil
	} else if ev.Applied {
		logger.Debug(ctx, "Risk:reward accepted", "symbol", inst.Symbol,
			"entry", entry, "stop", ev.Stop, "target", ev.Target, "ratio", ev.Ratio)
	}

	// 8-9. Submission plus optional bracket exit management.
	result, err := p.submit(ctx, inst, plan, price)
	if err != nil {
		logger.ErrorWithErr(ctx, "Order submission failed", err, "symbol", inst.Symbol, "side", plan.Side, "qty", plan.Quantity)
		return nil, err
	}

	p.recordTransaction(ctx, inst, plan, result)
	p.placeBracketExit(ctx, inst, plan, result, entry)

	logger.Trade(ctx, inst.Symbol, string(plan.Side), plan.Quantity, result.Price, result.OrderID)
	return &types.StepResult{
		Symbol:   inst.Symbol,
		Outcome:  types.OutcomeSubmitted,
		Reason:   decision.Reason,
		Decision: &decision,
		Price:    price,
		Plan:     &plan,
		Order:    &result,
	}, nil
}

// computeIndicators runs the configured set and reduces each series to
// its latest value for the prompt. atr is returned separately for the
// volatility gate.
func (p *Planner) computeIndicators(candles []types.Candle) (*types.IndicatorSnapshot, float64, error) {
	s := p.cfg.Strategy
	closes := ta.Closes(candles)
	snap := &types.IndicatorSnapshot{
		SMAPeriod: s.SMAPeriod,
		EMAPeriod: s.EMAPeriod,
		RSIPeriod: s.RSIPeriod,
		ATRPeriod: p.cfg.Risk.ATRPeriod,
	}

	sma, err := ta.SMA(closes, s.SMAPeriod)
	if err != nil {
		return nil, 0, err
	}
	snap.SMA = last(sma)

	ema, err := ta.EMA(closes, s.EMAPeriod)
	if err != nil {
		return nil, 0, err
	}
	snap.EMA = last(ema)

	rsi, err := ta.RSI(closes, s.RSIPeriod)
	if err != nil {
		return nil, 0, err
	}
	snap.RSI = last(rsi)

	macd, err := ta.MACD(closes, ta.MACDConfig{Fast: s.MACDFast, Slow: s.MACDSlow, Signal: s.MACDSignal})
	if err != nil {
		return nil, 0, err
	}
	if len(macd) > 0 {
		m := macd[len(macd)-1]
		snap.MACD = &types.MACDSnapshot{
			Fast: s.MACDFast, Slow: s.MACDSlow, SignalP: s.MACDSignal,
			MACD: m.MACD, Signal: m.Signal, Histogram: m.Histogram,
		}
	}

	atrSeries, err := ta.ATR(candles, p.cfg.Risk.ATRPeriod)
	if err != nil {
		return nil, 0, err
	}
	snap.ATR = last(atrSeries)

	var atr float64
	if snap.ATR != nil {
		atr = *snap.ATR
	}
	return snap, atr, nil
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}

// buildPromptContext assembles everything the orchestrator renders.
// Account and headline lookups are best effort.
func (p *Planner) buildPromptContext(ctx context.Context, inst types.Instrument, candles []types.Candle, price float64, snapshot *types.IndicatorSnapshot) types.PromptContext {
	lastCandle := candles[len(candles)-1]
	pctx := types.PromptContext{
		Symbol: inst.Symbol,
		Market: &types.MarketSnapshot{
			Interval:   p.cfg.Strategy.KlinesInterval,
			LastCandle: &lastCandle,
			Price:      price,
		},
		Indicators: snapshot,
		Risk: &types.RiskSummary{
			MaxLossPerTradePct:  p.cfg.Risk.MaxLossPerTradePct,
			MinRiskBenefitRatio: p.cfg.Risk.MinRiskBenefitRatio,
		},
		StrategyHint: inst.StrategyHint,
	}

	if account, err := p.exchange.AccountInfo(ctx, inst.Symbol, inst.QuoteAsset); err == nil {
		pctx.Account = &account
	} else {
		logger.Debug(ctx, "Account snapshot unavailable", "symbol", inst.Symbol, "error", err.Error())
	}

	if p.headlines != nil {
		if hs, err := p.headlines.Headlines(ctx, inst.Symbol); err == nil && len(hs) > 0 {
			pctx.Headlines = hs
		}
	}
	return pctx
}

// buildEntryPlan resolves the entry order and the reference entry price
// used by the risk:reward gate. For MARKET that reference is the market
// price; for LIMIT the limit itself; for a breakout STOP_LOSS_LIMIT
// entry it is the limit derived from the trigger, the worst acceptable
// fill.
func (p *Planner) buildEntryPlan(inst types.Instrument, side types.Action, qty, price float64) (types.OrderPlan, float64) {
	plan := types.OrderPlan{
		Symbol:   inst.Symbol,
		Side:     side,
		Mode:     types.ModeSpot,
		Quantity: qty,
	}
	if inst.MarginEnabled {
		plan.Mode = types.ModeMargin
	}

	offset := p.cfg.Orders.LimitOffsetPct / 100
	switch p.cfg.Orders.DefaultOrderType {
	case "LIMIT":
		plan.Type = types.OrderLimit
		var limit float64
		if side == types.ActionBuy {
			limit = RoundToTick(price*(1-offset), inst.TickSize)
		} else {
			limit = RoundToTick(price*(1+offset), inst.TickSize)
		}
		plan.LimitPrice = &limit
		return plan, limit
	case "STOP_LOSS_LIMIT":
		plan.Type = types.OrderStopLossLimit
		var stop, limit float64
		if side == types.ActionBuy {
			stop = RoundToTick(price*(1+offset), inst.TickSize)
			limit = RoundToTick(stop*(1+offset), inst.TickSize)
		} else {
			stop = RoundToTick(price*(1-offset), inst.TickSize)
			limit = RoundToTick(stop*(1-offset), inst.TickSize)
		}
		plan.StopPrice = &stop
		plan.LimitPrice = &limit
		return plan, limit
	default:
		plan.Type = types.OrderMarket
		return plan, price
	}
}

// submit routes the plan through the matching account, borrowing the
// shortfall first for margin buys when the balance is known.
func (p *Planner) submit(ctx context.Context, inst types.Instrument, plan types.OrderPlan, marketPrice float64) (types.OrderResult, error) {
	if plan.Mode != types.ModeMargin {
		return p.exchange.SubmitSpotOrder(ctx, plan)
	}

	if plan.Side == types.ActionBuy {
		if account, err := p.exchange.MarginAccountInfo(ctx, inst.Symbol, inst.QuoteAsset); err == nil {
			ref := marketPrice
			if plan.LimitPrice != nil {
				ref = *plan.LimitPrice
			}
			notional := plan.Quantity * ref
			if shortfall := notional - account.QuoteBalance; shortfall > 0 {
				borrowSymbol := ""
				if inst.MarginIsolated {
					borrowSymbol = inst.Symbol
				}
				if err := p.exchange.MarginBorrow(ctx, inst.QuoteAsset, shortfall, borrowSymbol); err != nil {
					return types.OrderResult{}, fmt.Errorf("margin borrow %.2f %s: %w", shortfall, inst.QuoteAsset, err)
				}
				logger.Info(ctx, "Margin funds borrowed", "symbol", inst.Symbol, "asset", inst.QuoteAsset, "amount", shortfall)
			}
		}
	}
	return p.exchange.SubmitMarginOrder(ctx, plan, inst.MarginIsolated)
}

func (p *Planner) recordTransaction(ctx context.Context, inst types.Instrument, plan types.OrderPlan, result types.OrderResult) {
	tx := types.Transaction{
		InstrumentID:  inst.ID,
		OrderID:       result.OrderID,
		ClientOrderID: result.ClientOrderID,
		Side:          plan.Side,
		Mode:          plan.Mode,
		Price:         result.Price,
		Quantity:      plan.Quantity,
		QuoteValue:    result.CumQuoteQty,
		Status:        result.Status,
		ExecutedAt:    time.Now().UTC(),
	}
	if p.txs != nil {
		if err := p.txs.AppendTransaction(ctx, tx); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist transaction", err, "symbol", inst.Symbol, "order_id", result.OrderID)
		}
	}
	if p.alerts != nil {
		if err := p.alerts.PublishTrade(ctx, tx); err != nil {
			logger.Warn(ctx, "Failed to publish trade event", "symbol", inst.Symbol, "error", err.Error())
		}
	}
}

// placeBracketExit attaches the take-profit / stop-loss OCO pair that
// closes the position opened by a filled entry. Brackets are exit
// management only; attaching them to a still-resting entry would need a
// fill watcher that does not exist yet, so that path only warns.
func (p *Planner) placeBracketExit(ctx context.Context, inst types.Instrument, plan types.OrderPlan, result types.OrderResult, entry float64) {
	orders := p.cfg.Orders
	if !orders.UseBracket || !orders.UseStopLoss || !orders.UseTakeProfit {
		return
	}
	if result.Status != "FILLED" {
		logger.Warn(ctx, "Bracket exit pending entry fill is not supported, skipping bracket",
			"symbol", inst.Symbol, "order_id", result.OrderID, "status", result.Status)
		return
	}

	exitSide := types.ActionSell
	if plan.Side == types.ActionSell {
		exitSide = types.ActionBuy
	}
	fill := result.Price
	if fill <= 0 {
		fill = entry
	}

	var target, stop, stopLimit float64
	if exitSide == types.ActionSell {
		target = RoundToTick(fill*(1+orders.TakeProfitPct/100), inst.TickSize)
		stop = RoundToTick(fill*(1-orders.StopLossPct/100), inst.TickSize)
		stopLimit = RoundToTick(stop*(1-orders.StopLossLimitOffsetPct/100), inst.TickSize)
	} else {
		target = RoundToTick(fill*(1-orders.TakeProfitPct/100), inst.TickSize)
		stop = RoundToTick(fill*(1+orders.StopLossPct/100), inst.TickSize)
		stopLimit = RoundToTick(stop*(1+orders.StopLossLimitOffsetPct/100), inst.TickSize)
	}

	qty := result.ExecutedQty
	if qty <= 0 {
		qty = plan.Quantity
	}
	bracket := types.OrderPlan{
		Symbol:         inst.Symbol,
		Side:           exitSide,
		Type:           types.OrderBracket,
		Mode:           plan.Mode,
		Quantity:       qty,
		LimitPrice:     &target,
		StopPrice:      &stop,
		StopLimitPrice: &stopLimit,
	}
	if _, err := p.exchange.SubmitBracketOrder(ctx, bracket); err != nil {
		logger.ErrorWithErr(ctx, "Failed to place bracket exit", err, "symbol", inst.Symbol, "entry_order_id", result.OrderID)
		return
	}
	logger.Info(ctx, "Bracket exit placed", "symbol", inst.Symbol,
		"side", exitSide, "target", target, "stop", stop, "stop_limit", stopLimit)
}
