package interfaces

import (
	"context"

	"ai-crypto-trader/internal/types"
)

// Exchange is the order-submission gateway. Rate limiting, signing and
// transport-level retries live behind this boundary.
type Exchange interface {
	SubmitSpotOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error)
	SubmitMarginOrder(ctx context.Context, plan types.OrderPlan, isolated bool) (types.OrderResult, error)
	// SubmitBracketOrder places a paired take-profit limit leg and
	// stop-loss trigger+limit leg that mutually cancel.
	SubmitBracketOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderResult, error)
	MarginBorrow(ctx context.Context, asset string, amount float64, symbol string) error
	MarginRepay(ctx context.Context, asset string, amount float64, symbol string) error
	AccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error)
	// MarginAccountInfo reads the margin-account balances; borrow
	// sizing for margin orders must use these, not the spot balances.
	MarginAccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error)
}
