// Package gateway is the Bybit v5 REST binding. The rest of the system
// treats it as an opaque exchange capability: market data, instrument
// limits, wallet balance, and real order submission.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/quantroll/vex/market"
)

// MainnetURL is the production API host. Market data is always read from
// mainnet, even in virtual mode, so simulated fills track real prices.
const MainnetURL = "https://api.bybit.com"

const recvWindow = "5000"

// Client is a Bybit v5 API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	real       bool
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient returns a client for the given host. real enables the private
// trading endpoints; with real=false the client only serves market data.
func NewClient(baseURL, apiKey, apiSecret string, real bool, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = MainnetURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		real:      real,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// IsConnected reports whether the client can submit real orders.
func (c *Client) IsConnected() bool {
	return c.real && c.apiKey != "" && c.apiSecret != ""
}

// envelope is the common Bybit v5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// CurrentPrice returns the last traded price for a linear contract.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"category": {"linear"}, "symbol": {symbol}}
	var result struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := c.get(ctx, "/v5/market/tickers", q, &result); err != nil {
		return 0, fmt.Errorf("current price %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return 0, fmt.Errorf("current price %s: empty ticker list", symbol)
	}
	p, err := strconv.ParseFloat(result.List[0].LastPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("current price %s: parse %q: %w", symbol, result.List[0].LastPrice, err)
	}
	return p, nil
}

// Tickers returns a snapshot of every USDT linear contract.
func (c *Client) Tickers(ctx context.Context) ([]market.Ticker, error) {
	q := url.Values{"category": {"linear"}}
	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			LastPrice     string `json:"lastPrice"`
			Price24hPcnt  string `json:"price24hPcnt"`
		} `json:"list"`
	}
	if err := c.get(ctx, "/v5/market/tickers", q, &result); err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}
	out := make([]market.Ticker, 0, len(result.List))
	for _, tk := range result.List {
		if !market.IsUSDT(tk.Symbol) {
			continue
		}
		last, err := strconv.ParseFloat(tk.LastPrice, 64)
		if err != nil {
			continue
		}
		chg, _ := strconv.ParseFloat(tk.Price24hPcnt, 64)
		out = append(out, market.Ticker{Symbol: tk.Symbol, LastPrice: last, Change24h: chg})
	}
	return out, nil
}

// Symbols returns the USDT linear contract symbols available on the venue.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	q := url.Values{"category": {"linear"}}
	var result struct {
		List []struct {
			Symbol string `json:"symbol"`
		} `json:"list"`
	}
	if err := c.get(ctx, "/v5/market/instruments-info", q, &result); err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	var out []string
	for _, it := range result.List {
		if market.IsUSDT(it.Symbol) {
			out = append(out, it.Symbol)
		}
	}
	return out, nil
}

// InstrumentLimits returns the lot and price filters for one symbol.
func (c *Client) InstrumentLimits(ctx context.Context, symbol string) (market.InstrumentLimits, error) {
	q := url.Values{"category": {"linear"}, "symbol": {symbol}}
	var result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LotFilter struct {
				MinQty  string `json:"minOrderQty"`
				MaxQty  string `json:"maxOrderQty"`
				QtyStep string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
		} `json:"list"`
	}
	if err := c.get(ctx, "/v5/market/instruments-info", q, &result); err != nil {
		return market.InstrumentLimits{}, fmt.Errorf("instrument limits %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return market.InstrumentLimits{}, fmt.Errorf("instrument limits %s: unknown symbol", symbol)
	}
	it := result.List[0]
	lim := market.InstrumentLimits{Symbol: it.Symbol}
	lim.MinQty, _ = strconv.ParseFloat(it.LotFilter.MinQty, 64)
	lim.MaxQty, _ = strconv.ParseFloat(it.LotFilter.MaxQty, 64)
	lim.QtyStep, _ = strconv.ParseFloat(it.LotFilter.QtyStep, 64)
	lim.TickSize, _ = strconv.ParseFloat(it.PriceFilter.TickSize, 64)
	return lim, nil
}

// Kline fetches OHLCV candles, oldest first. interval uses Bybit notation
// ("1", "5", "60", "240", "D", ...). limit is capped at 200 by the venue.
func (c *Client) Kline(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 200
	}
	q := url.Values{
		"category": {"linear"},
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	var result struct {
		List [][]string `json:"list"`
	}
	if err := c.get(ctx, "/v5/market/kline", q, &result); err != nil {
		return nil, fmt.Errorf("kline %s: %w", symbol, err)
	}
	candles := make([]market.Candle, 0, len(result.List))
	for _, row := range result.List {
		if len(row) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		c := market.Candle{Time: time.UnixMilli(ts).UTC()}
		c.Open, _ = strconv.ParseFloat(row[1], 64)
		c.High, _ = strconv.ParseFloat(row[2], 64)
		c.Low, _ = strconv.ParseFloat(row[3], 64)
		c.Close, _ = strconv.ParseFloat(row[4], 64)
		c.Volume, _ = strconv.ParseFloat(row[5], 64)
		candles = append(candles, c)
	}
	// Bybit returns newest first.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// Balance is the wallet balance mapped to capital-account shape.
type Balance struct {
	Capital   float64
	Available float64
	Used      float64
	Currency  string
}

// WalletBalance reads the unified account wallet. Requires credentials.
func (c *Client) WalletBalance(ctx context.Context) (Balance, error) {
	q := url.Values{"accountType": {"UNIFIED"}}
	var result struct {
		List []struct {
			TotalEquity      string `json:"totalEquity"`
			AvailableBalance string `json:"totalAvailableBalance"`
			UsedMargin       string `json:"totalInitialMargin"`
			AccountType      string `json:"accountType"`
		} `json:"list"`
	}
	if err := c.getSigned(ctx, "/v5/account/wallet-balance", q, &result); err != nil {
		return Balance{}, fmt.Errorf("wallet balance: %w", err)
	}
	if len(result.List) == 0 {
		return Balance{}, fmt.Errorf("wallet balance: empty result")
	}
	row := result.List[0]
	var b Balance
	b.Capital, _ = strconv.ParseFloat(row.TotalEquity, 64)
	b.Available, _ = strconv.ParseFloat(row.AvailableBalance, 64)
	b.Used, _ = strconv.ParseFloat(row.UsedMargin, 64)
	b.Currency = "USDT"
	return b, nil
}

// Position is one live venue position.
type Position struct {
	Symbol        string
	Side          market.Side
	Size          float64
	EntryPrice    float64
	Leverage      int
	UnrealizedPnl float64
}

// Positions reads live positions from the venue, optionally filtered by
// symbol. Requires credentials.
func (c *Client) Positions(ctx context.Context, symbol string) ([]Position, error) {
	q := url.Values{"category": {"linear"}}
	if symbol != "" {
		q.Set("symbol", symbol)
	} else {
		q.Set("settleCoin", "USDT")
	}
	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			Leverage      string `json:"leverage"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"list"`
	}
	if err := c.getSigned(ctx, "/v5/position/list", q, &result); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	var out []Position
	for _, row := range result.List {
		side, err := market.ParseSide(row.Side)
		if err != nil {
			continue
		}
		p := Position{Symbol: row.Symbol, Side: side}
		p.Size, _ = strconv.ParseFloat(row.Size, 64)
		if p.Size == 0 {
			continue
		}
		p.EntryPrice, _ = strconv.ParseFloat(row.AvgPrice, 64)
		lev, _ := strconv.ParseFloat(row.Leverage, 64)
		p.Leverage = int(lev)
		p.UnrealizedPnl, _ = strconv.ParseFloat(row.UnrealisedPnl, 64)
		out = append(out, p)
	}
	return out, nil
}

// get performs an unsigned GET against a public endpoint.
func (c *Client) get(ctx context.Context, path string, q url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// getSigned performs a GET against a private endpoint with v5 HMAC headers.
func (c *Client) getSigned(ctx context.Context, path string, q url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	c.sign(req, flatten(q))
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.RetCode != 0 {
		return &VenueError{Code: env.RetCode, Msg: env.RetMsg}
	}
	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// flatten returns params as sorted k=v pairs joined by &, the canonical
// form the v5 signature covers.
func flatten(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += "&"
		}
		s += k + "=" + q.Get(k)
	}
	return s
}
