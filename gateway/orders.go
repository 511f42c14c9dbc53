package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/quantroll/vex/market"
)

// OrderRequest is a real order submission. Price 0 means a market order.
type OrderRequest struct {
	Symbol     string
	Side       market.Side
	Qty        float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
}

// OrderAck is the venue's acknowledgement of a placed order.
type OrderAck struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// PlaceOrder submits a real order. The call is wrapped in a bounded retry
// (3 attempts, exponential backoff) because a dropped response leaves the
// caller unable to tell whether the venue accepted the order; the virtual
// path never goes through here and is not retried.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if !c.IsConnected() {
		return OrderAck{}, fmt.Errorf("place order: gateway not connected")
	}

	orderType := "Market"
	if req.Price > 0 {
		orderType = "Limit"
	}
	params := map[string]string{
		"category":  "linear",
		"symbol":    req.Symbol,
		"side":      string(req.Side),
		"orderType": orderType,
		"qty":       strconv.FormatFloat(req.Qty, 'f', -1, 64),
	}
	if req.Price > 0 {
		params["price"] = strconv.FormatFloat(req.Price, 'f', -1, 64)
	}
	if req.StopLoss != nil {
		params["stopLoss"] = strconv.FormatFloat(*req.StopLoss, 'f', -1, 64)
	}
	if req.TakeProfit != nil {
		params["takeProfit"] = strconv.FormatFloat(*req.TakeProfit, 'f', -1, 64)
	}

	var ack OrderAck
	err := retry(ctx, defaultRetry, c.log, "place order", func() error {
		return c.postSigned(ctx, "/v5/order/create", params, &ack)
	})
	if err != nil {
		return OrderAck{}, fmt.Errorf("place order %s %s: %w", req.Symbol, req.Side, err)
	}
	return ack, nil
}

// ClosePosition submits the reducing market order for an open real position.
func (c *Client) ClosePosition(ctx context.Context, symbol string, side market.Side, qty float64) error {
	if !c.IsConnected() {
		return fmt.Errorf("close position: gateway not connected")
	}
	params := map[string]string{
		"category":   "linear",
		"symbol":     symbol,
		"side":       string(side.Opposite()),
		"orderType":  "Market",
		"qty":        strconv.FormatFloat(qty, 'f', -1, 64),
		"reduceOnly": "true",
	}
	err := retry(ctx, defaultRetry, c.log, "close position", func() error {
		return c.postSigned(ctx, "/v5/order/create", params, nil)
	})
	if err != nil {
		return fmt.Errorf("close position %s %s: %w", symbol, side, err)
	}
	return nil
}

// postSigned performs a POST against a private endpoint with v5 HMAC headers.
func (c *Client) postSigned(ctx context.Context, path string, params map[string]string, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, string(body))
	return c.do(req, result)
}
