package vex

import (
	"context"
	"strings"

	"github.com/quantroll/vex/internal/id"
	"github.com/quantroll/vex/journal"
	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/store"
)

// sizeEps absorbs float dust when comparing trade sizes.
const sizeEps = 1e-9

// ClosePosition closes open trades matching symbol+side, oldest first.
// A nil qty closes every matching trade fully. A specified qty is consumed
// FIFO: trades smaller than the remainder close fully, the last trade is
// split, with the closed portion appended as its own terminal record so
// that total size is conserved.
//
// With no matching open trades, or no resolvable price, the call is a
// no-op failure and mutates nothing.
func (l *Ledger) ClosePosition(ctx context.Context, symbol, sideRaw string, qty *float64) (CloseResult, error) {
	side, err := market.ParseSide(sideRaw)
	if err != nil {
		return CloseResult{Status: "NotFound"}, validationErr("%v", err)
	}
	if qty != nil && *qty <= 0 {
		return CloseResult{Status: "NotFound"}, validationErr("close quantity must be positive, got %v", *qty)
	}

	price := l.oracle.Price(ctx, symbol)
	if price <= 0 {
		return CloseResult{Status: "NotFound"}, ErrNoPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.store.ReadCapital()
	trades := l.store.ReadTrades()

	var chunks []CloseChunk
	remaining := 0.0
	if qty != nil {
		remaining = *qty
	}

	for i := range trades {
		t := &trades[i]
		if !t.IsOpen() || t.Symbol != symbol || t.Side != side {
			continue
		}
		if qty == nil {
			chunks = append(chunks, l.closeTradeLocked(t, book, price, store.ReasonManual))
			continue
		}
		if remaining <= sizeEps {
			break
		}
		if t.Size <= remaining+sizeEps {
			remaining -= t.Size
			chunks = append(chunks, l.closeTradeLocked(t, book, price, store.ReasonManual))
			continue
		}
		// Split: shrink the parent, append the closed portion as its own
		// record. Parent size + chunk sizes always equals the pre-close size.
		chunk := l.splitTradeLocked(t, &trades, book, price, remaining)
		chunks = append(chunks, chunk)
		remaining = 0
	}

	if len(chunks) == 0 {
		return CloseResult{Status: "NotFound"}, ErrNotFound
	}

	l.persistLocked(book, trades, "close position")

	for _, ch := range chunks {
		if ch.Reason == store.ReasonPartial {
			continue // journaled as a closed row at split time
		}
		if err := l.journal.CloseTrade(ch.OrderID, ch.ClosePrice, ch.Pnl, ch.Reason); err != nil {
			l.log.Debug("journal close", "order_id", ch.OrderID, "error", err)
		}
	}

	l.log.Info("position closed",
		"symbol", symbol, "side", side, "chunks", len(chunks), "price", price)

	return CloseResult{Closed: chunks, Status: "Closed"}, nil
}

// closeTradeLocked fully closes t at price and reconciles the account:
// margin is released from used, realized pnl lands in capital, and
// available is recomputed from the formula rather than adjusted by delta.
func (l *Ledger) closeTradeLocked(t *store.Trade, book store.CapitalBook, price float64, reason string) CloseChunk {
	pnl := t.Pnl(price, t.Size)
	margin := t.Margin(t.Size)
	now := l.now()

	t.Status = store.StatusClosed
	t.ClosePrice = &price
	t.CloseTime = &now
	t.RealizedPnl = &pnl
	t.CloseReason = reason
	t.Reserved = 0

	l.releaseLocked(book, margin, pnl)

	return CloseChunk{
		OrderID:    t.ID,
		Symbol:     t.Symbol,
		Side:       t.Side,
		Qty:        t.Size,
		ClosePrice: price,
		Pnl:        pnl,
		Reason:     reason,
	}
}

// splitTradeLocked closes qty out of t, shrinking t and appending a
// synthetic closed record for the portion.
func (l *Ledger) splitTradeLocked(t *store.Trade, trades *[]store.Trade, book store.CapitalBook, price, qty float64) CloseChunk {
	pnl := t.Pnl(price, qty)
	margin := t.Margin(qty)
	now := l.now()

	chunk := *t
	chunk.ID = id.Chunk(t.ID, countChunks(*trades, t.ID)+1)
	chunk.Size = qty
	chunk.Reserved = 0
	chunk.Status = store.StatusClosed
	chunk.ClosePrice = &price
	chunk.CloseTime = &now
	chunk.RealizedPnl = &pnl
	chunk.CloseReason = store.ReasonPartial

	t.Size -= qty
	t.Reserved -= margin
	*trades = append(*trades, chunk)

	l.releaseLocked(book, margin, pnl)

	// The split chunk has no journal row of its own yet; record it so the
	// history ledger sees the realized portion.
	if err := l.journal.AddTrade(journal.TradeRecord{
		OrderID: chunk.ID, Symbol: chunk.Symbol, Side: string(chunk.Side),
		Qty: qty, EntryPrice: chunk.EntryPrice, ExitPrice: price, Pnl: pnl,
		Leverage: chunk.Leverage, Virtual: true, Status: store.StatusClosed,
		Reason: store.ReasonPartial, OpenedAt: chunk.EntryTime, ClosedAt: now,
	}); err != nil {
		l.log.Debug("journal partial close", "order_id", chunk.ID, "error", err)
	}

	return CloseChunk{
		OrderID:    chunk.ID,
		Symbol:     chunk.Symbol,
		Side:       chunk.Side,
		Qty:        qty,
		ClosePrice: price,
		Pnl:        pnl,
		Reason:     store.ReasonPartial,
	}
}

// releaseLocked applies a close portion to the virtual account. Available
// is recomputed from capital-used at this reconciliation point so repeated
// deltas cannot drift it.
func (l *Ledger) releaseLocked(book store.CapitalBook, margin, pnl float64) {
	acct := book[store.ModeVirtual]
	acct.Used -= margin
	if acct.Used < 0 && acct.Used > -1e-6 {
		acct.Used = 0
	}
	acct.Capital += pnl
	acct.Available = acct.Capital - acct.Used
	book[store.ModeVirtual] = acct
}

func countChunks(trades []store.Trade, parentID string) int {
	n := 0
	for i := range trades {
		if strings.HasPrefix(trades[i].ID, parentID+"-C") {
			n++
		}
	}
	return n
}
