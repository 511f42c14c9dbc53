// Package journal is the durable history ledger for executed trades and
// generated signals, used for reporting and offline model training. The
// trading core treats it as best-effort: a journal failure is logged and
// never fails the operation that produced the record.
package journal

import "time"

// TradeRecord is one executed (virtual or real) trade as journaled.
type TradeRecord struct {
	OrderID    string
	Symbol     string
	Side       string
	Qty        float64
	EntryPrice float64
	ExitPrice  float64
	Pnl        float64
	Leverage   int
	Virtual    bool
	Status     string // "open" or "closed"
	Reason     string
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// SignalRecord is one generated signal as journaled.
type SignalRecord struct {
	Symbol     string
	Interval   string
	Side       string
	Score      float64
	Entry      float64
	TakeProfit float64
	StopLoss   float64
	Leverage   int
	Strategy   string
	CreatedAt  time.Time
}

// TradeFilter narrows Trades queries. Zero values match everything.
type TradeFilter struct {
	Symbol string
	Status string
	Limit  int
}

type Journal interface {
	AddTrade(TradeRecord) error
	AddSignal(SignalRecord) error
	OpenTrades() ([]TradeRecord, error)
	Trades(TradeFilter) ([]TradeRecord, error)
	CloseTrade(orderID string, exitPrice, pnl float64, reason string) error
	Close() error
}
