package vex

import (
	"context"

	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/store"
)

// sweepLocked runs the SL/TP monitoring pass over the in-memory documents.
// A triggered trade closes at the breached level, not the live price. The
// stop loss is checked before the take profit; a single pass with
// first-match-wins keeps the two mutually exclusive per trade. The sweep is
// idempotent: with unchanged prices and no new open trades a second pass
// changes nothing.
//
// Returns whether any trade was closed; the caller's documents are
// persisted only in that case.
func (l *Ledger) sweepLocked(ctx context.Context, book store.CapitalBook, trades []store.Trade) bool {
	prices := map[string]float64{}
	triggered := false

	for i := range trades {
		t := &trades[i]
		if !t.IsOpen() {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok {
			price = l.oracle.Price(ctx, t.Symbol)
			prices[t.Symbol] = price
		}
		if price <= 0 {
			continue
		}

		level, reason := breachedLevel(t, price)
		if reason == "" {
			continue
		}
		chunk := l.closeTradeLocked(t, book, level, reason)
		triggered = true

		if err := l.journal.CloseTrade(chunk.OrderID, chunk.ClosePrice, chunk.Pnl, reason); err != nil {
			l.log.Debug("journal triggered close", "order_id", chunk.OrderID, "error", err)
		}
		l.log.Info("trigger fired",
			"order_id", chunk.OrderID, "symbol", t.Symbol, "reason", reason,
			"level", level, "mark", price, "pnl", chunk.Pnl)
	}

	if triggered {
		l.persistLocked(book, trades, "sweep")
	}
	return triggered
}

// breachedLevel returns the SL or TP level crossed by the mark price, if
// any. SL wins when both would trigger in the same pass.
func breachedLevel(t *store.Trade, price float64) (level float64, reason string) {
	long := t.Side == market.Buy

	if sl := t.StopLoss; sl != nil && *sl > 0 {
		if (long && price <= *sl) || (!long && price >= *sl) {
			return *sl, store.ReasonStopLoss
		}
	}
	if tp := t.TakeProfit; tp != nil && *tp > 0 {
		if (long && price >= *tp) || (!long && price <= *tp) {
			return *tp, store.ReasonTakeProfit
		}
	}
	return 0, ""
}
