// Package vex is the virtual exchange: it simulates order placement, margin
// accounting, stop-loss/take-profit monitoring, and position closing against
// a file-backed capital and trades store, reproducing venue semantics
// without a matching engine.
//
// Every mutating or reading operation serializes on one ledger-wide mutex.
// The store's file locks only protect a single document's I/O; the mutex is
// what makes the capital read-modify-write and the trades append of one
// logical operation atomic with respect to concurrent callers, so two
// orders can never both spend the same available margin.
package vex

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantroll/vex/internal/id"
	"github.com/quantroll/vex/journal"
	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/oracle"
	"github.com/quantroll/vex/store"
	"github.com/quantroll/vex/validate"
)

// Ledger is the virtual position ledger. It is the sole writer of the
// capital and trades documents and is safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	store     *store.Store
	oracle    *oracle.Oracle
	validator *validate.Validator
	journal   journal.Journal
	log       *slog.Logger
	now       func() time.Time
}

// New returns a ledger over the given collaborators. hist may be nil, in
// which case history journaling is disabled.
func New(st *store.Store, or *oracle.Oracle, val *validate.Validator, hist journal.Journal, log *slog.Logger) *Ledger {
	if hist == nil {
		hist = journal.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	if val == nil {
		val = validate.New(nil)
	}
	return &Ledger{
		store:     st,
		oracle:    or,
		validator: val,
		journal:   hist,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder simulates a fill: it validates the request, reserves margin,
// appends the open trade, runs the SL/TP sweep, and returns the
// acknowledgement. On any rejection no state is mutated.
func (l *Ledger) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	side, err := market.ParseSide(req.Side)
	if err != nil {
		return OrderAck{}, validationErr("%v", err)
	}

	res, err := l.validator.Validate(ctx, validate.Request{
		Symbol:     req.Symbol,
		Qty:        req.Qty,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		// Metadata fetch faults count as validation failures, not crashes.
		l.log.Warn("order validation degraded", "symbol", req.Symbol, "error", err)
		return OrderAck{}, validationErr("venue metadata unavailable: %v", err)
	}
	if !res.Valid {
		return OrderAck{}, validationErr("%s", res.Reason)
	}

	price := res.Price
	if price <= 0 {
		price = l.oracle.Price(ctx, req.Symbol)
	}
	if price <= 0 {
		return OrderAck{}, ErrNoPrice
	}

	// Margin is checked at the requested leverage, defaulting to 1 when
	// unset; the stored trade defaults to 10.
	checkLev := req.Leverage
	if checkLev < 1 {
		checkLev = 1
	}
	margin := res.Qty * price / float64(checkLev)

	storedLev := req.Leverage
	if storedLev < 1 {
		storedLev = defaultLeverage
	}

	sl, tp := resolveGuardrails(side, price, res.StopLoss, res.TakeProfit)

	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.store.ReadCapital()
	acct := book[store.ModeVirtual]
	if margin > acct.Available {
		l.log.Warn("order rejected: insufficient margin",
			"symbol", req.Symbol, "required", margin, "available", acct.Available)
		return OrderAck{}, ErrInsufficientFunds
	}

	now := l.now()
	trade := store.Trade{
		ID:         id.New(),
		Symbol:     req.Symbol,
		Side:       side,
		Size:       res.Qty,
		EntryPrice: price,
		EntryTime:  now,
		StopLoss:   &sl,
		TakeProfit: &tp,
		Status:     store.StatusOpen,
		Leverage:   storedLev,
		Reserved:   margin,
	}

	// Reserve margin by delta: capital is untouched until realization.
	acct.Used += margin
	acct.Available -= margin
	book[store.ModeVirtual] = acct

	trades := append(l.store.ReadTrades(), trade)
	l.persistLocked(book, trades, "place order")

	// Keep trigger state fresh for immediate subsequent reads.
	l.sweepLocked(ctx, book, trades)

	if err := l.journal.AddTrade(journal.TradeRecord{
		OrderID: trade.ID, Symbol: trade.Symbol, Side: string(side),
		Qty: trade.Size, EntryPrice: price, Leverage: storedLev,
		Virtual: true, Status: store.StatusOpen, OpenedAt: now,
	}); err != nil {
		l.log.Warn("journal trade", "order_id", trade.ID, "error", err)
	}

	l.log.Info("virtual order filled",
		"order_id", trade.ID, "symbol", req.Symbol, "side", side,
		"qty", res.Qty, "price", price, "sl", sl, "tp", tp, "margin", margin)

	return OrderAck{
		OrderID:    trade.ID,
		Symbol:     req.Symbol,
		Side:       side,
		Qty:        res.Qty,
		Price:      price,
		StopLoss:   sl,
		TakeProfit: tp,
		Leverage:   storedLev,
		Status:     "Filled",
	}, nil
}

// resolveGuardrails fills missing SL/TP with the percentage fallbacks,
// directional per side.
func resolveGuardrails(side market.Side, entry float64, sl, tp *float64) (stopLoss, takeProfit float64) {
	if sl != nil {
		stopLoss = *sl
	} else if side == market.Buy {
		stopLoss = entry * (1 - defaultStopLossPct)
	} else {
		stopLoss = entry * (1 + defaultStopLossPct)
	}
	if tp != nil {
		takeProfit = *tp
	} else if side == market.Buy {
		takeProfit = entry * (1 + defaultTakeProfitPct)
	} else {
		takeProfit = entry * (1 - defaultTakeProfitPct)
	}
	return stopLoss, takeProfit
}

// persistLocked writes both documents. Persistence is best-effort: failures
// are logged as durability warnings and the in-memory result stands.
func (l *Ledger) persistLocked(book store.CapitalBook, trades []store.Trade, op string) {
	if err := l.store.WriteCapital(book); err != nil {
		l.log.Error("durability warning: persist capital", "op", op, "error", err)
	}
	if err := l.store.WriteTrades(trades); err != nil {
		l.log.Error("durability warning: persist trades", "op", op, "error", err)
	}
}
