package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/types"
)

// Paper simulates the order side of the exchange for DRY_RUN mode.
// Market data still comes from the real gateway; only submissions are
// faked. Fills are immediate at the plan's limit price, or at the live
// ticker price for market orders.
type Paper struct {
	md interfaces.MarketData

	mu     sync.Mutex
	seq    int64
	orders map[string]types.OrderResult
	// quote balance and per-symbol positions for the account snapshot
	quoteBalance float64
	positions    map[string]*types.Position
}

var _ interfaces.Exchange = (*Paper)(nil)

// NewPaper builds the simulator with the given starting quote balance.
func NewPaper(md interfaces.MarketData, startingBalance float64) *Paper {
	return &Paper{
		md:           md,
		orders:       make(map[string]types.OrderResult),
		positions:    make(map[string]*types.Position),
		quoteBalance: startingBalance,
	}
}

func (p *Paper) nextID() string {
	p.seq++
	return fmt.Sprintf("SIM-%d-%d", time.Now().UnixNano(), p.seq)
}

// fillPrice resolves the simulated execution price.
func (p *Paper) fillPrice(ctx context.Context, plan types.OrderPlan) (float64, error) {
	if plan.LimitPrice != nil {
		return *plan.LimitPrice, nil
	}
	t, err := p.md.Ticker(ctx, plan.Symbol)
	if err != nil {
		return 0, fmt.Errorf("paper fill price: %w", err)
	}
	return t.Price, nil
}

func (p *Paper) submit(ctx context.Context, plan types.OrderPlan, status string) (types.OrderResult, error) {
	price, err := p.fillPrice(ctx, plan)
	if err != nil {
		return types.OrderResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := types.OrderResult{
		OrderID:       p.nextID(),
		ClientOrderID: fmt.Sprintf("paper-%d", p.seq),
		Status:        status,
		Price:         price,
		TransactTime:  time.Now().UnixMilli(),
	}
	if status == "FILLED" {
		result.ExecutedQty = plan.Quantity
		result.CumQuoteQty = plan.Quantity * price
		p.applyFill(plan, price)
	}
	p.orders[result.OrderID] = result

	logger.Trade(ctx, plan.Symbol, string(plan.Side), plan.Quantity, price, result.OrderID)
	return result, nil
}

// applyFill adjusts the simulated balances. Callers hold p.mu.
func (p *Paper) applyFill(plan types.OrderPlan, price float64) {
	notional := plan.Quantity * price
	pos := p.positions[plan.Symbol]
	switch plan.Side {
	case types.ActionBuy:
		p.quoteBalance -= notional
		if pos == nil {
			p.positions[plan.Symbol] = &types.Position{Quantity: plan.Quantity, EntryPrice: price}
		} else {
			total := pos.Quantity + plan.Quantity
			pos.EntryPrice = (pos.EntryPrice*pos.Quantity + notional) / total
			pos.Quantity = total
		}
	case types.ActionSell:
		p.quoteBalance += notional
		if pos != nil {
			pos.Quantity -= plan.Quantity
			if pos.Quantity <= 0 {
				delete(p.positions, plan.Symbol)
			}
		}
	}
}

func (p *Paper) SubmitSpotOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error) {
	// Resting order types never fill instantly in the simulation.
	status := "FILLED"
	if plan.Type == types.OrderStopLossLimit || plan.Type == types.OrderTakeProfitLimit {
		status = "NEW"
	}
	return p.submit(ctx, plan, status)
}

func (p *Paper) SubmitMarginOrder(ctx context.Context, plan types.OrderPlan, isolated bool) (types.OrderResult, error) {
	return p.SubmitSpotOrder(ctx, plan)
}

func (p *Paper) SubmitBracketOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error) {
	return p.submit(ctx, plan, "NEW")
}

func (p *Paper) CancelOrder(ctx context.Context, symbol, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("paper cancel: unknown order %s", orderID)
	}
	o.Status = "CANCELED"
	p.orders[orderID] = o
	return nil
}

func (p *Paper) OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return types.OrderResult{}, fmt.Errorf("paper status: unknown order %s", orderID)
	}
	return o, nil
}

func (p *Paper) MarginBorrow(ctx context.Context, asset string, amount float64, symbol string) error {
	logger.Debug(ctx, "Simulated margin borrow", "asset", asset, "amount", amount, "symbol", symbol)
	return nil
}

func (p *Paper) MarginRepay(ctx context.Context, asset string, amount float64, symbol string) error {
	logger.Debug(ctx, "Simulated margin repay", "asset", asset, "amount", amount, "symbol", symbol)
	return nil
}

func (p *Paper) AccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info := types.AccountInfo{QuoteBalance: p.quoteBalance}
	if pos, ok := p.positions[symbol]; ok {
		cp := *pos
		info.Position = &cp
	}
	return info, nil
}

// MarginAccountInfo serves the same simulated pool; the simulation does
// not keep separate spot and margin wallets.
func (p *Paper) MarginAccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error) {
	return p.AccountInfo(ctx, symbol, quoteAsset)
}
