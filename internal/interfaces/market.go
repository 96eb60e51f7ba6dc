package interfaces

import (
	"context"

	"ai-crypto-trader/internal/types"
)

// MarketData is the read-only market data gateway.
type MarketData interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error)
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	OrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error)
}
