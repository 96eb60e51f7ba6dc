package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-crypto-trader/internal/types"
)

func TestBinanceCandlesParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000,"42000.1","42100.5","41900.0","42050.2","12.34",1700003599999,"519000.0",100,"6.0","252000.0","0"],
			[1700003600000,"42050.2","42200.0","42000.0","42150.0","8.21",1700007199999,"346000.0",80,"4.0","168000.0","0"]
		]`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, 5*time.Second)
	candles, err := b.Candles(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.EqualValues(t, 1700000000000, candles[0].OpenTime)
	assert.Equal(t, 42000.1, candles[0].Open)
	assert.Equal(t, 42100.5, candles[0].High)
	assert.Equal(t, 42050.2, candles[0].Close)
	assert.Equal(t, 12.34, candles[0].Volume)
	assert.EqualValues(t, 1700003599999, candles[0].CloseTime)
	assert.Equal(t, 42150.0, candles[1].Close)
}

func TestBinanceTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"2501.37000000"}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, 5*time.Second)
	tk, err := b.Ticker(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", tk.Symbol)
	assert.Equal(t, 2501.37, tk.Price)
}

func TestBinanceErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, 5*time.Second)
	_, err := b.Ticker(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-1121")
	assert.Contains(t, err.Error(), "Invalid symbol")
}

func TestBinanceOrderBookParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/depth", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bids":[["42000.0","1.5"]],"asks":[["42001.0","0.7"]]}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, 5*time.Second)
	book, err := b.OrderBook(context.Background(), "BTCUSDT", 5)
	require.NoError(t, err)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, [2]float64{42000.0, 1.5}, book.Bids[0])
	assert.Equal(t, [2]float64{42001.0, 0.7}, book.Asks[0])
}

func TestBinanceOrdersRequireCredentials(t *testing.T) {
	b := NewBinance("http://unused", time.Second)
	b.apiKey, b.secret = "", ""
	_, err := b.SubmitSpotOrder(context.Background(), types.OrderPlan{Symbol: "BTCUSDT", Side: types.ActionBuy, Type: types.OrderMarket, Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")
}

func TestBinanceMarginAccountInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sapi/v1/margin/account", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"userAssets":[
			{"asset":"BTC","free":"0.5","locked":"0","borrowed":"0"},
			{"asset":"USDT","free":"40.0","locked":"0","borrowed":"100.0"}
		]}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, 5*time.Second)
	b.apiKey, b.secret = "key", "secret"
	info, err := b.MarginAccountInfo(context.Background(), "BTCUSDT", "USDT")
	require.NoError(t, err)
	assert.Equal(t, 40.0, info.QuoteBalance, "quote balance comes from the margin wallet")
	require.NotNil(t, info.Position)
	assert.Equal(t, 0.5, info.Position.Quantity)
}

type staticMD struct{ price float64 }

func (s staticMD) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	return nil, nil
}
func (s staticMD) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return types.Ticker{Symbol: symbol, Price: s.price}, nil
}
func (s staticMD) OrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	return types.OrderBook{}, nil
}

func TestPaperMarketOrderFillsAtTicker(t *testing.T) {
	p := NewPaper(staticMD{price: 100.0}, 1000.0)
	res, err := p.SubmitSpotOrder(context.Background(), types.OrderPlan{
		Symbol: "BTCUSDT", Side: types.ActionBuy, Type: types.OrderMarket, Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "FILLED", res.Status)
	assert.Equal(t, 100.0, res.Price)
	assert.Equal(t, 2.0, res.ExecutedQty)

	info, err := p.AccountInfo(context.Background(), "BTCUSDT", "USDT")
	require.NoError(t, err)
	assert.Equal(t, 800.0, info.QuoteBalance)
	require.NotNil(t, info.Position)
	assert.Equal(t, 2.0, info.Position.Quantity)
	assert.Equal(t, 100.0, info.Position.EntryPrice)
}

func TestPaperLimitOrderFillsAtLimit(t *testing.T) {
	p := NewPaper(staticMD{price: 105.0}, 1000.0)
	limit := 99.5
	res, err := p.SubmitSpotOrder(context.Background(), types.OrderPlan{
		Symbol: "BTCUSDT", Side: types.ActionBuy, Type: types.OrderLimit, Quantity: 1, LimitPrice: &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, 99.5, res.Price)
}

func TestPaperSellClosesPosition(t *testing.T) {
	p := NewPaper(staticMD{price: 100.0}, 1000.0)
	ctx := context.Background()
	_, err := p.SubmitSpotOrder(ctx, types.OrderPlan{Symbol: "BTCUSDT", Side: types.ActionBuy, Type: types.OrderMarket, Quantity: 1})
	require.NoError(t, err)
	_, err = p.SubmitSpotOrder(ctx, types.OrderPlan{Symbol: "BTCUSDT", Side: types.ActionSell, Type: types.OrderMarket, Quantity: 1})
	require.NoError(t, err)

	info, err := p.AccountInfo(ctx, "BTCUSDT", "USDT")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, info.QuoteBalance)
	assert.Nil(t, info.Position)
}

func TestPaperStopOrderRestsAndCancels(t *testing.T) {
	p := NewPaper(staticMD{price: 100.0}, 1000.0)
	ctx := context.Background()
	stop, lim := 95.0, 94.5
	res, err := p.SubmitSpotOrder(ctx, types.OrderPlan{
		Symbol: "BTCUSDT", Side: types.ActionSell, Type: types.OrderStopLossLimit,
		Quantity: 1, StopPrice: &stop, LimitPrice: &lim,
	})
	require.NoError(t, err)
	assert.Equal(t, "NEW", res.Status)
	assert.Zero(t, res.ExecutedQty)

	require.NoError(t, p.CancelOrder(ctx, "BTCUSDT", res.OrderID))
	got, err := p.OrderStatus(ctx, "BTCUSDT", res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", got.Status)
}
