package vex

import (
	"context"
	"fmt"
	"time"

	"github.com/quantroll/vex/store"
)

// Positions returns the open trades, optionally filtered by symbol, each
// annotated with the live price and unrealized PnL. The SL/TP sweep runs
// first so callers never observe positions that should already have
// triggered.
func (l *Ledger) Positions(ctx context.Context, symbol string) []PositionView {
	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.store.ReadCapital()
	trades := l.store.ReadTrades()
	l.sweepLocked(ctx, book, trades)

	prices := map[string]float64{}
	var views []PositionView
	for i := range trades {
		t := &trades[i]
		if !t.IsOpen() || (symbol != "" && t.Symbol != symbol) {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok {
			price = l.oracle.Price(ctx, t.Symbol)
			prices[t.Symbol] = price
		}
		view := PositionView{
			OrderID:      t.ID,
			Symbol:       t.Symbol,
			Side:         t.Side,
			Size:         t.Size,
			EntryPrice:   t.EntryPrice,
			EntryTime:    t.EntryTime,
			StopLoss:     t.StopLoss,
			TakeProfit:   t.TakeProfit,
			Leverage:     t.Leverage,
			CurrentPrice: price,
		}
		if price > 0 {
			view.UnrealizedPnl = t.Pnl(price, t.Size)
		}
		views = append(views, view)
	}
	return views
}

// DailyPnl sums the realized PnL of trades closed during the current UTC
// calendar day. The sweep runs first so a just-breached trigger counts.
func (l *Ledger) DailyPnl(ctx context.Context) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.store.ReadCapital()
	trades := l.store.ReadTrades()
	l.sweepLocked(ctx, book, trades)

	// UTC day boundary: Truncate works against the epoch, which is midnight UTC.
	dayStart := l.now().Truncate(24 * time.Hour)
	total := 0.0
	for i := range trades {
		t := &trades[i]
		if t.IsOpen() || t.CloseTime == nil || t.RealizedPnl == nil {
			continue
		}
		if t.CloseTime.Before(dayStart) {
			continue
		}
		total += *t.RealizedPnl
	}
	return total
}

// Balance returns the capital account for mode ("virtual" or "real").
func (l *Ledger) Balance(mode string) store.CapitalAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ReadCapital()[mode]
}

// SetStartingBalance resets the mode's account to a fresh balance. Refused
// while open trades exist, since that would orphan their reserved margin.
func (l *Ledger) SetStartingBalance(mode string, amount float64) error {
	if amount <= 0 {
		return validationErr("starting balance must be positive, got %v", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trades := l.store.ReadTrades()
	for i := range trades {
		if trades[i].IsOpen() {
			return fmt.Errorf("cannot reset %s balance with open positions", mode)
		}
	}

	book := l.store.ReadCapital()
	acct := book[mode]
	acct.Capital = amount
	acct.Available = amount
	acct.Used = 0
	acct.StartBalance = amount
	if acct.Currency == "" {
		acct.Currency = "USDT"
	}
	book[mode] = acct
	if err := l.store.WriteCapital(book); err != nil {
		l.log.Error("durability warning: persist capital", "op", "reset balance", "error", err)
	}
	l.log.Info("balance reset", "mode", mode, "amount", amount)
	return nil
}

// Stats summarizes closed-trade performance from the trades document.
func (l *Ledger) Stats() TradeStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s TradeStats
	for _, t := range l.store.ReadTrades() {
		if t.IsOpen() || t.RealizedPnl == nil {
			continue
		}
		s.TotalTrades++
		s.TotalPnl += *t.RealizedPnl
		if *t.RealizedPnl > 0 {
			s.ProfitableTrades++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades) * 100
	}
	return s
}
