package vex

import (
	"time"

	"github.com/quantroll/vex/market"
)

// Default guardrails applied when an order arrives without explicit SL/TP.
// These are fallback protections, not strategy levels.
const (
	defaultTakeProfitPct = 0.30
	defaultStopLossPct   = 0.10
	defaultLeverage      = 10
)

// OrderRequest is a simulated order submission. Side accepts the common
// aliases (Buy/Sell/LONG/SHORT). Price 0 means fill at the oracle's mark
// price. Leverage 0 selects the default for the stored trade.
type OrderRequest struct {
	Symbol     string
	Side       string
	Qty        float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
	Leverage   int
}

// OrderAck is the normalized acknowledgement of a filled virtual order.
type OrderAck struct {
	OrderID    string
	Symbol     string
	Side       market.Side
	Qty        float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Leverage   int
	Status     string // always "Filled" for virtual orders
}

// PositionView is a read-only projection of one open trade annotated with
// the live mark price and unrealized PnL.
type PositionView struct {
	OrderID       string
	Symbol        string
	Side          market.Side
	Size          float64
	EntryPrice    float64
	EntryTime     time.Time
	StopLoss      *float64
	TakeProfit    *float64
	Leverage      int
	CurrentPrice  float64
	UnrealizedPnl float64
}

// CloseChunk is one closed portion produced by a close operation. A single
// ClosePosition call can produce several chunks when the requested quantity
// spans multiple FIFO trades.
type CloseChunk struct {
	OrderID    string
	Symbol     string
	Side       market.Side
	Qty        float64
	ClosePrice float64
	Pnl        float64
	Reason     string
}

// CloseResult reports the outcome of a close operation.
type CloseResult struct {
	Closed []CloseChunk
	Status string // "Closed" or "NotFound"
}

// TradeStats summarizes the closed-trade history of one mode.
type TradeStats struct {
	TotalTrades      int
	ProfitableTrades int
	WinRate          float64 // percent
	TotalPnl         float64
}
