package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Bitunix spot REST host.
const DefaultBaseURL = "https://openapi.bitunix.com"

// timeframeMap translates human-readable timeframes to Bitunix interval codes.
var timeframeMap = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"1h":  "60",
	"4h":  "240",
	"1d":  "D",
}

// Client is a thin REST adapter for the Bitunix spot market. Only the
// endpoints the bot needs: klines, depth, market & limit orders, order status.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Bitunix client. An empty baseURL selects the production
// host.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Kline is the raw candle shape returned by the kline endpoint.
type Kline struct {
	Timestamp int64   `json:"ts"`
	Open      float64 `json:"open,string"`
	High      float64 `json:"high,string"`
	Low       float64 `json:"low,string"`
	Close     float64 `json:"close,string"`
	Volume    float64 `json:"volume,string"`
}

// OrderBook holds one side-aggregated snapshot of the depth endpoint.
type OrderBook struct {
	Bids [][2]float64
	Asks [][2]float64
}

// OrderAck is the exchange acknowledgment for a submitted order.
type OrderAck struct {
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
}

// OrderState is the fill status reported by the order-status endpoint.
type OrderState struct {
	OrderID     string  `json:"orderId"`
	Status      string  `json:"status"` // NEW, PARTIALLY_FILLED, FILLED, REJECTED, CANCELED
	ExecutedQty float64 `json:"executedQty,string"`
}

// APIError is a non-2xx or business-level error response from the exchange.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitunix api error: status=%d code=%d msg=%s", e.StatusCode, e.Code, e.Message)
}

// FetchKlines returns raw klines for symbol/timeframe, most recent last.
func (c *Client) FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]Kline, error) {
	ivl, ok := timeframeMap[timeframe]
	if !ok {
		ivl = "1"
	}
	if limit <= 0 {
		limit = 500
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("interval", ivl)
	params.Set("limit", strconv.Itoa(limit))

	var klines []Kline
	if err := c.get(ctx, "/api/spot/v1/market/kline", params, &klines); err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	return klines, nil
}

// FetchOrderBook returns the top `depth` levels of the book.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error) {
	if depth <= 0 {
		depth = 20
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("limit", strconv.Itoa(depth))

	var raw struct {
		Bids [][2]json.Number `json:"bids"`
		Asks [][2]json.Number `json:"asks"`
	}
	if err := c.get(ctx, "/api/spot/v1/market/depth", params, &raw); err != nil {
		return nil, fmt.Errorf("fetch order book: %w", err)
	}
	book := &OrderBook{}
	for _, lvl := range raw.Bids {
		price, _ := lvl[0].Float64()
		qty, _ := lvl[1].Float64()
		book.Bids = append(book.Bids, [2]float64{price, qty})
	}
	for _, lvl := range raw.Asks {
		price, _ := lvl[0].Float64()
		qty, _ := lvl[1].Float64()
		book.Asks = append(book.Asks, [2]float64{price, qty})
	}
	return book, nil
}

// CreateMarketOrder submits an immediate market order.
func (c *Client) CreateMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*OrderAck, error) {
	payload := map[string]any{
		"symbol":        normalizeSymbol(symbol),
		"side":          strings.ToUpper(side),
		"type":          "MARKET",
		"quantity":      quantity,
		"clientOrderId": clientOrderID,
	}
	var ack OrderAck
	if err := c.post(ctx, "/api/spot/v1/order", payload, &ack); err != nil {
		return nil, fmt.Errorf("create market order: %w", err)
	}
	return &ack, nil
}

// CreateLimitOrder submits a GTC limit order. The position manager only uses
// market orders; this exists for manual and future use.
func (c *Client) CreateLimitOrder(ctx context.Context, symbol, side, quantity string, price float64, clientOrderID string) (*OrderAck, error) {
	payload := map[string]any{
		"symbol":        normalizeSymbol(symbol),
		"side":          strings.ToUpper(side),
		"type":          "LIMIT",
		"price":         fmt.Sprintf("%.2f", price),
		"quantity":      quantity,
		"timeInForce":   "GTC",
		"clientOrderId": clientOrderID,
	}
	var ack OrderAck
	if err := c.post(ctx, "/api/spot/v1/order", payload, &ack); err != nil {
		return nil, fmt.Errorf("create limit order: %w", err)
	}
	return &ack, nil
}

// GetOrder returns the current fill state of an order.
func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*OrderState, error) {
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", orderID)

	var state OrderState
	if err := c.get(ctx, "/api/spot/v1/order/detail", params, &state); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &state, nil
}

// envelope is the common {code, msg, data} response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	if c.apiKey == "" || c.apiSecret == "" {
		return fmt.Errorf("BITUNIX_KEY and BITUNIX_SECRET must be set")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	nonce := strconv.FormatInt(c.now().UnixMilli(), 10)
	query := "timestamp=" + nonce

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+query, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("X-SIGNATURE", c.sign(query))
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
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
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// sign produces the hex HMAC-SHA256 of the query string with the API secret.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// normalizeSymbol strips the slash from pair notation (BTC/USDT -> BTCUSDT).
func normalizeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}
