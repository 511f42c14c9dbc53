package store

import (
	"time"

	"github.com/quantroll/vex/market"
)

// Trade status values. The transition StatusOpen -> StatusClosed is one-way.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Close reasons recorded on the closed trade.
const (
	ReasonManual     = "manual"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonPartial    = "partial"
)

// Trade is one simulated position as persisted in the trades document.
// ID, Symbol, Side, EntryPrice, EntryTime, and Leverage are immutable once
// set. Size only decreases, through partial closes. The close fields are nil
// while the trade is open and set exactly once at the close transition.
type Trade struct {
	ID         string      `json:"order_id"`
	Symbol     string      `json:"symbol"`
	Side       market.Side `json:"side"`
	Size       float64     `json:"qty"`
	EntryPrice float64     `json:"entry_price"`
	EntryTime  time.Time   `json:"entry_time"`
	StopLoss   *float64    `json:"stopLoss"`
	TakeProfit *float64    `json:"takeProfit"`
	Status     string      `json:"status"`
	Leverage   int         `json:"leverage"`

	// Reserved is the margin currently held against Size. It is set at
	// open from the margin actually debited and shrinks with partial
	// closes, so releases always sum back to the reservation even when
	// the margin check ran at a different leverage than the stored one.
	Reserved float64 `json:"margin"`

	ClosePrice  *float64   `json:"exit_price"`
	CloseTime   *time.Time `json:"close_timestamp"`
	RealizedPnl *float64   `json:"pnl"`
	CloseReason string     `json:"exit_reason"`
}

// IsOpen reports whether the trade still holds an open position.
func (t *Trade) IsOpen() bool { return t.Status == StatusOpen }

// Margin returns the share of the reserved margin attributable to qty
// units of this trade.
func (t *Trade) Margin(qty float64) float64 {
	if t.Size <= 0 {
		return 0
	}
	return t.Reserved * qty / t.Size
}

// Pnl returns the profit or loss realized by closing qty units at price.
func (t *Trade) Pnl(price, qty float64) float64 {
	return t.Side.Sign() * (price - t.EntryPrice) * qty
}
