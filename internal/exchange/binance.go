// Package exchange holds the market-data and order gateways: a signed
// Binance REST client for LIVE mode and a simulated gateway for
// DRY_RUN.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

// Binance is the REST gateway. Public market-data endpoints need no
// credentials; trading and account endpoints are HMAC-signed.
type Binance struct {
	client *resty.Client
	apiKey string
	secret string
}

var (
	_ interfaces.MarketData = (*Binance)(nil)
	_ interfaces.Exchange   = (*Binance)(nil)
)

// NewBinance builds the gateway. baseURL defaults to the public spot
// API when empty; credentials come from BINANCE_API_KEY and
// BINANCE_API_SECRET.
func NewBinance(baseURL string, timeout time.Duration) *Binance {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	return &Binance{
		client: client,
		apiKey: os.Getenv("BINANCE_API_KEY"),
		secret: os.Getenv("BINANCE_API_SECRET"),
	}
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (b *Binance) wrapErr(op string, resp *resty.Response, apiErr binanceError) error {
	if apiErr.Msg != "" {
		return fmt.Errorf("binance %s: http %d code %d: %s", op, resp.StatusCode(), apiErr.Code, apiErr.Msg)
	}
	return fmt.Errorf("binance %s: http %d", op, resp.StatusCode())
}

// Candles fetches klines, oldest first. Binance encodes each bar as a
// mixed-type JSON array; numeric fields arrive as strings.
func (b *Binance) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "binance.Candles")
	defer span.End()

	var raw [][]json.RawMessage
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&raw).
		SetError(&apiErr).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	if resp.IsError() {
		return nil, b.wrapErr("klines", resp, apiErr)
	}

	out := make([]types.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			return nil, fmt.Errorf("binance klines: short bar with %d fields", len(k))
		}
		var c types.Candle
		if err := json.Unmarshal(k[0], &c.OpenTime); err != nil {
			return nil, fmt.Errorf("binance klines: open time: %w", err)
		}
		if err := json.Unmarshal(k[6], &c.CloseTime); err != nil {
			return nil, fmt.Errorf("binance klines: close time: %w", err)
		}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			var s string
			if err := json.Unmarshal(k[i+1], &s); err != nil {
				return nil, fmt.Errorf("binance klines: field %d: %w", i+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("binance klines: field %d: %w", i+1, err)
			}
			*dst = v
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *Binance) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	ctx, span := trace.StartSpan(ctx, "binance.Ticker")
	defer span.End()

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v3/ticker/price")
	if err != nil {
		return types.Ticker{}, fmt.Errorf("binance ticker: %w", err)
	}
	if resp.IsError() {
		return types.Ticker{}, b.wrapErr("ticker", resp, apiErr)
	}
	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("binance ticker: price %q: %w", out.Price, err)
	}
	return types.Ticker{Symbol: out.Symbol, Price: price}, nil
}

func (b *Binance) OrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	ctx, span := trace.StartSpan(ctx, "binance.OrderBook")
	defer span.End()

	var out struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": symbol, "limit": strconv.Itoa(depth)}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v3/depth")
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("binance depth: %w", err)
	}
	if resp.IsError() {
		return types.OrderBook{}, b.wrapErr("depth", resp, apiErr)
	}

	book := types.OrderBook{}
	parse := func(levels [][2]string) ([][2]float64, error) {
		out := make([][2]float64, 0, len(levels))
		for _, lv := range levels {
			p, err := strconv.ParseFloat(lv[0], 64)
			if err != nil {
				return nil, err
			}
			q, err := strconv.ParseFloat(lv[1], 64)
			if err != nil {
				return nil, err
			}
			out = append(out, [2]float64{p, q})
		}
		return out, nil
	}
	if book.Bids, err = parse(out.Bids); err != nil {
		return types.OrderBook{}, fmt.Errorf("binance depth: bids: %w", err)
	}
	if book.Asks, err = parse(out.Asks); err != nil {
		return types.OrderBook{}, fmt.Errorf("binance depth: asks: %w", err)
	}
	return book, nil
}

// sign appends timestamp and HMAC-SHA256 signature, returning the full
// query string.
func (b *Binance) sign(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	qs := params.Encode()
	mac := hmac.New(sha256.New, []byte(b.secret))
	mac.Write([]byte(qs))
	return qs + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

func (b *Binance) requireKeys() error {
	if b.apiKey == "" || b.secret == "" {
		return fmt.Errorf("binance: BINANCE_API_KEY/BINANCE_API_SECRET not set")
	}
	return nil
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"`
	TransactTime  int64  `json:"transactTime"`
}

func (r orderResponse) toResult() types.OrderResult {
	price, _ := strconv.ParseFloat(r.Price, 64)
	qty, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(r.CumQuoteQty, 64)
	return types.OrderResult{
		OrderID:       strconv.FormatInt(r.OrderID, 10),
		ClientOrderID: r.ClientOrderID,
		Status:        r.Status,
		Price:         price,
		ExecutedQty:   qty,
		CumQuoteQty:   quote,
		TransactTime:  r.TransactTime,
	}
}

// orderParams translates a normalized plan into Binance order fields.
func orderParams(plan types.OrderPlan) url.Values {
	params := url.Values{}
	params.Set("symbol", plan.Symbol)
	params.Set("side", string(plan.Side))
	params.Set("type", string(plan.Type))
	params.Set("quantity", strconv.FormatFloat(plan.Quantity, 'f', -1, 64))
	switch plan.Type {
	case types.OrderLimit:
		params.Set("timeInForce", "GTC")
		if plan.LimitPrice != nil {
			params.Set("price", strconv.FormatFloat(*plan.LimitPrice, 'f', -1, 64))
		}
	case types.OrderStopLossLimit, types.OrderTakeProfitLimit:
		params.Set("timeInForce", "GTC")
		if plan.StopPrice != nil {
			params.Set("stopPrice", strconv.FormatFloat(*plan.StopPrice, 'f', -1, 64))
		}
		if plan.LimitPrice != nil {
			params.Set("price", strconv.FormatFloat(*plan.LimitPrice, 'f', -1, 64))
		}
	}
	return params
}

func (b *Binance) submitSigned(ctx context.Context, op, path string, params url.Values) (types.OrderResult, error) {
	if err := b.requireKeys(); err != nil {
		return types.OrderResult{}, err
	}
	var out orderResponse
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(b.sign(params)).
		SetResult(&out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("binance %s: %w", op, err)
	}
	if resp.IsError() {
		return types.OrderResult{}, b.wrapErr(op, resp, apiErr)
	}
	return out.toResult(), nil
}

func (b *Binance) SubmitSpotOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "binance.SubmitSpotOrder")
	defer span.End()
	return b.submitSigned(ctx, "spot order", "/api/v3/order", orderParams(plan))
}

func (b *Binance) SubmitMarginOrder(ctx context.Context, plan types.OrderPlan, isolated bool) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "binance.SubmitMarginOrder")
	defer span.End()
	params := orderParams(plan)
	if isolated {
		params.Set("isIsolated", "TRUE")
	}
	return b.submitSigned(ctx, "margin order", "/sapi/v1/margin/order", params)
}

// SubmitBracketOrder places an OCO pair: a take-profit limit leg at
// LimitPrice and a stop leg at StopPrice/StopLimitPrice. Side here is
// the exit side, opposite the position.
func (b *Binance) SubmitBracketOrder(ctx context.Context, plan types.OrderPlan) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "binance.SubmitBracketOrder")
	defer span.End()

	if err := b.requireKeys(); err != nil {
		return types.OrderResult{}, err
	}
	if plan.LimitPrice == nil || plan.StopPrice == nil || plan.StopLimitPrice == nil {
		return types.OrderResult{}, fmt.Errorf("binance oco: plan missing limit, stop or stop-limit price")
	}

	params := url.Values{}
	params.Set("symbol", plan.Symbol)
	params.Set("side", string(plan.Side))
	params.Set("quantity", strconv.FormatFloat(plan.Quantity, 'f', -1, 64))
	params.Set("price", strconv.FormatFloat(*plan.LimitPrice, 'f', -1, 64))
	params.Set("stopPrice", strconv.FormatFloat(*plan.StopPrice, 'f', -1, 64))
	params.Set("stopLimitPrice", strconv.FormatFloat(*plan.StopLimitPrice, 'f', -1, 64))
	params.Set("stopLimitTimeInForce", "GTC")

	var out struct {
		OrderListID  int64 `json:"orderListId"`
		TransactTime int64 `json:"transactionTime"`
		Orders       []struct {
			OrderID       int64  `json:"orderId"`
			ClientOrderID string `json:"clientOrderId"`
		} `json:"orders"`
	}
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(b.sign(params)).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v3/order/oco")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("binance oco: %w", err)
	}
	if resp.IsError() {
		return types.OrderResult{}, b.wrapErr("oco", resp, apiErr)
	}

	result := types.OrderResult{
		OrderID:      strconv.FormatInt(out.OrderListID, 10),
		Status:       "NEW",
		ExecutedQty:  0,
		TransactTime: out.TransactTime,
	}
	if len(out.Orders) > 0 {
		result.ClientOrderID = out.Orders[0].ClientOrderID
	}
	return result, nil
}

func (b *Binance) CancelOrder(ctx context.Context, symbol, orderID string) error {
	ctx, span := trace.StartSpan(ctx, "binance.CancelOrder")
	defer span.End()

	if err := b.requireKeys(); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetQueryString(b.sign(params)).
		SetError(&apiErr).
		Delete("/api/v3/order")
	if err != nil {
		return fmt.Errorf("binance cancel: %w", err)
	}
	if resp.IsError() {
		return b.wrapErr("cancel", resp, apiErr)
	}
	return nil
}

func (b *Binance) OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "binance.OrderStatus")
	defer span.End()

	if err := b.requireKeys(); err != nil {
		return types.OrderResult{}, err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var out orderResponse
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetQueryString(b.sign(params)).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v3/order")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("binance order status: %w", err)
	}
	if resp.IsError() {
		return types.OrderResult{}, b.wrapErr("order status", resp, apiErr)
	}
	return out.toResult(), nil
}

func (b *Binance) marginLoanOp(ctx context.Context, op, path, asset string, amount float64, symbol string) error {
	if err := b.requireKeys(); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("asset", asset)
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	if symbol != "" {
		params.Set("isIsolated", "TRUE")
		params.Set("symbol", symbol)
	}

	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(b.sign(params)).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("binance %s: %w", op, err)
	}
	if resp.IsError() {
		return b.wrapErr(op, resp, apiErr)
	}
	return nil
}

// MarginBorrow takes a margin loan. A non-empty symbol selects the
// isolated margin account for that pair.
func (b *Binance) MarginBorrow(ctx context.Context, asset string, amount float64, symbol string) error {
	ctx, span := trace.StartSpan(ctx, "binance.MarginBorrow")
	defer span.End()
	return b.marginLoanOp(ctx, "margin borrow", "/sapi/v1/margin/loan", asset, amount, symbol)
}

func (b *Binance) MarginRepay(ctx context.Context, asset string, amount float64, symbol string) error {
	ctx, span := trace.StartSpan(ctx, "binance.MarginRepay")
	defer span.End()
	return b.marginLoanOp(ctx, "margin repay", "/sapi/v1/margin/repay", asset, amount, symbol)
}

type assetBalance struct {
	Asset string `json:"asset"`
	Free  string `json:"free"`
}

// reduceBalances collapses an asset list to the snapshot the prompt
// needs: free quote balance plus any base-asset position.
func reduceBalances(symbol, quoteAsset string, balances []assetBalance) types.AccountInfo {
	base := symbol
	if quoteAsset != "" && len(symbol) > len(quoteAsset) {
		base = symbol[:len(symbol)-len(quoteAsset)]
	}

	info := types.AccountInfo{}
	for _, bal := range balances {
		free, err := strconv.ParseFloat(bal.Free, 64)
		if err != nil {
			continue
		}
		switch bal.Asset {
		case quoteAsset:
			info.QuoteBalance = free
		case base:
			if free > 0 {
				info.Position = &types.Position{Quantity: free}
			}
		}
	}
	return info
}

// AccountInfo reads the spot account balances.
func (b *Binance) AccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "binance.AccountInfo")
	defer span.End()

	if err := b.requireKeys(); err != nil {
		return types.AccountInfo{}, err
	}
	var out struct {
		Balances []assetBalance `json:"balances"`
	}
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetQueryString(b.sign(url.Values{})).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v3/account")
	if err != nil {
		return types.AccountInfo{}, fmt.Errorf("binance account: %w", err)
	}
	if resp.IsError() {
		return types.AccountInfo{}, b.wrapErr("account", resp, apiErr)
	}
	return reduceBalances(symbol, quoteAsset, out.Balances), nil
}

// MarginAccountInfo reads the cross-margin account balances. Isolated
// pairs are served from the same cross snapshot.
func (b *Binance) MarginAccountInfo(ctx context.Context, symbol, quoteAsset string) (types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "binance.MarginAccountInfo")
	defer span.End()

	if err := b.requireKeys(); err != nil {
		return types.AccountInfo{}, err
	}
	var out struct {
		UserAssets []assetBalance `json:"userAssets"`
	}
	var apiErr binanceError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", b.apiKey).
		SetQueryString(b.sign(url.Values{})).
		SetResult(&out).
		SetError(&apiErr).
		Get("/sapi/v1/margin/account")
	if err != nil {
		return types.AccountInfo{}, fmt.Errorf("binance margin account: %w", err)
	}
	if resp.IsError() {
		return types.AccountInfo{}, b.wrapErr("margin account", resp, apiErr)
	}
	return reduceBalances(symbol, quoteAsset, out.UserAssets), nil
}
