package vex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantroll/vex/journal"
	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/oracle"
	"github.com/quantroll/vex/store"
	"github.com/quantroll/vex/validate"
)

// fakePrices is a settable price source backing the oracle in tests.
type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (f *fakePrices) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("no ticker")
	}
	return p, nil
}

func (f *fakePrices) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func newLedger(t *testing.T, balance float64) (*Ledger, *fakePrices) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), store.DefaultCapitalBook(balance, "USDT"), log)
	require.NoError(t, err)
	prices := &fakePrices{prices: map[string]float64{}}
	l := New(st, oracle.New(prices, log), nil, journal.Nop{}, log)
	return l, prices
}

func virtAccount(l *Ledger) store.CapitalAccount {
	return l.Balance(store.ModeVirtual)
}

func requireReconciled(t *testing.T, l *Ledger) {
	t.Helper()
	acct := virtAccount(l)
	require.True(t, acct.Reconciled(1e-6),
		"capital=%v available=%v used=%v", acct.Capital, acct.Available, acct.Used)
}

func fp(v float64) *float64 { return &v }

func TestPlaceOrderReservesMargin(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 100)
	ctx := context.Background()

	ack, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "Filled", ack.Status)
	assert.Equal(t, market.Buy, ack.Side)
	assert.Equal(t, 100000.0, ack.Price)
	assert.NotEmpty(t, ack.OrderID)
	// Default fallback guardrails: TP = entry+30%, SL = entry-10%.
	assert.InDelta(t, 130000, ack.TakeProfit, 1e-6)
	assert.InDelta(t, 90000, ack.StopLoss, 1e-6)

	acct := virtAccount(l)
	assert.InDelta(t, 100, acct.Capital, 1e-9)
	assert.InDelta(t, 90, acct.Available, 1e-9)
	assert.InDelta(t, 10, acct.Used, 1e-9)
	requireReconciled(t, l)
}

func TestPlaceOrderShortGuardrails(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 1000)

	ack, err := l.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "ETHUSDT", Side: "SHORT", Qty: 0.1, Price: 3000, Leverage: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, market.Sell, ack.Side)
	assert.InDelta(t, 2100, ack.TakeProfit, 1e-6) // entry - 30%
	assert.InDelta(t, 3300, ack.StopLoss, 1e-6)   // entry + 10%
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 100)
	ctx := context.Background()

	var verr *ValidationError

	_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Hold", Qty: 1, Price: 100})
	require.ErrorAs(t, err, &verr)

	_, err = l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0, Price: 100})
	require.ErrorAs(t, err, &verr)

	_, err = l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 1, Price: -1})
	require.ErrorAs(t, err, &verr)

	// No mutation on any rejection.
	acct := virtAccount(l)
	assert.Equal(t, 100.0, acct.Available)
	assert.Equal(t, 0.0, acct.Used)
	assert.Empty(t, l.Positions(ctx, ""))
}

type failingLimits struct{}

func (failingLimits) InstrumentLimits(context.Context, string) (market.InstrumentLimits, error) {
	return market.InstrumentLimits{}, errors.New("dial tcp: no route to host")
}

func TestLimitsFetchFailureRejectsWithoutMutation(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), store.DefaultCapitalBook(100, "USDT"), log)
	require.NoError(t, err)
	prices := &fakePrices{prices: map[string]float64{"BTCUSDT": 100000}}
	l := New(st, oracle.New(prices, log), validate.New(failingLimits{}), journal.Nop{}, log)

	var verr *ValidationError
	_, err = l.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.ErrorAs(t, err, &verr)

	acct := l.Balance(store.ModeVirtual)
	assert.Equal(t, 100.0, acct.Available)
	assert.Equal(t, 0.0, acct.Used)
	assert.Empty(t, l.store.ReadTrades())
}

func TestPlaceOrderNoPrice(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 100)

	// Unknown symbol, no live price, no fallback entry.
	_, err := l.PlaceOrder(context.Background(), OrderRequest{Symbol: "ZZZUSDT", Side: "Buy", Qty: 1})
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Equal(t, 0.0, virtAccount(l).Used)
}

func TestPlaceOrderInsufficientFunds(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 100)

	// Margin check uses leverage 1 when unset: 0.002 * 100000 = 200 > 100.
	_, err := l.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.002, Price: 100000,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	acct := virtAccount(l)
	assert.Equal(t, 100.0, acct.Available)
	assert.Equal(t, 0.0, acct.Used)
}

func TestPlaceOrderLeverageDefaults(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	prices.set("BTCUSDT", 100000)

	// Unset leverage: margin checked at 1x, stored trade gets 10x.
	ack, err := l.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.005, Price: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, ack.Leverage)

	acct := virtAccount(l)
	assert.InDelta(t, 500, acct.Used, 1e-9) // 0.005*100000/1
	requireReconciled(t, l)
}

func TestUnsetLeverageReservationFullyReleased(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	// Margin is checked and reserved at 1x while the stored trade carries
	// the 10x default; the release must return the reserved amount, not a
	// recomputation at the stored leverage.
	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.005, Price: 100000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 500, virtAccount(l).Used, 1e-9)

	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", fp(0.002))
	require.NoError(t, err)
	assert.InDelta(t, 300, virtAccount(l).Used, 1e-9) // proportional release

	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)

	acct := virtAccount(l)
	assert.Empty(t, l.Positions(ctx, ""))
	assert.InDelta(t, 0, acct.Used, 1e-9)
	assert.InDelta(t, 1000, acct.Capital, 1e-9)
	assert.InDelta(t, 1000, acct.Available, 1e-9)
	requireReconciled(t, l)
}

func TestStopLossSweepClosesAtLevel(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.NoError(t, err)

	// Price gaps through the stop: the close must fill at the stop level
	// (90000), not the live mark (89000).
	prices.set("BTCUSDT", 89000)
	assert.Empty(t, l.Positions(ctx, ""))

	acct := virtAccount(l)
	assert.InDelta(t, 90, acct.Capital, 1e-9) // pnl = (90000-100000)*0.001 = -10
	assert.InDelta(t, 0, acct.Used, 1e-9)
	assert.InDelta(t, 90, acct.Available, 1e-9)
	requireReconciled(t, l)
}

func TestTakeProfitSweepShort(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("ETHUSDT", 3000)

	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "ETHUSDT", Side: "Sell", Qty: 0.1, Price: 3000, Leverage: 10,
		StopLoss: fp(3200), TakeProfit: fp(2800),
	})
	require.NoError(t, err)

	prices.set("ETHUSDT", 2750)
	assert.Empty(t, l.Positions(ctx, ""))

	acct := virtAccount(l)
	// pnl = (3000-2800)*0.1 = +20, filled at the TP level.
	assert.InDelta(t, 120, acct.Capital, 1e-9)
	requireReconciled(t, l)
}

func TestSweepIsIdempotent(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.NoError(t, err)

	prices.set("BTCUSDT", 89000)
	_ = l.Positions(ctx, "")
	after := virtAccount(l)

	// Additional sweeps with unchanged prices change nothing.
	_ = l.Positions(ctx, "")
	_ = l.DailyPnl(ctx)
	again := virtAccount(l)

	assert.Equal(t, after, again)
	assert.Len(t, onlyClosed(l), 1)
}

func TestSLCheckedBeforeTP(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	// Degenerate band where one mark breaches both levels; the loss-limiting
	// stop must win.
	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
		StopLoss: fp(99000), TakeProfit: fp(98000),
	})
	require.NoError(t, err)

	prices.set("BTCUSDT", 98500)
	_ = l.Positions(ctx, "")

	closed := onlyClosed(l)
	require.Len(t, closed, 1)
	assert.Equal(t, store.ReasonStopLoss, closed[0].CloseReason)
	assert.Equal(t, 99000.0, *closed[0].ClosePrice)
}

func TestClosePositionFull(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	_, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.NoError(t, err)

	prices.set("BTCUSDT", 110000)
	res, err := l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)
	require.Len(t, res.Closed, 1)
	assert.Equal(t, "Closed", res.Status)
	assert.InDelta(t, 10, res.Closed[0].Pnl, 1e-9) // (110000-100000)*0.001

	acct := virtAccount(l)
	assert.InDelta(t, 110, acct.Capital, 1e-9)
	assert.InDelta(t, 0, acct.Used, 1e-9)
	requireReconciled(t, l)
}

func TestPartialCloseSplitsTrade(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	ack, err := l.PlaceOrder(ctx, OrderRequest{
		Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10,
	})
	require.NoError(t, err)
	usedBefore := virtAccount(l).Used

	prices.set("BTCUSDT", 110000)
	res, err := l.ClosePosition(ctx, "BTCUSDT", "Buy", fp(0.0005))
	require.NoError(t, err)
	require.Len(t, res.Closed, 1)

	chunk := res.Closed[0]
	assert.Equal(t, ack.OrderID+"-C1", chunk.OrderID)
	assert.InDelta(t, 0.0005, chunk.Qty, 1e-12)
	assert.InDelta(t, 5, chunk.Pnl, 1e-9) // (110000-100000)*0.0005
	assert.Equal(t, store.ReasonPartial, chunk.Reason)

	// Parent stays open at the reduced size; size is conserved.
	open := l.Positions(ctx, "BTCUSDT")
	require.Len(t, open, 1)
	assert.Equal(t, ack.OrderID, open[0].OrderID)
	assert.InDelta(t, 0.0005, open[0].Size, 1e-12)

	closed := onlyClosed(l)
	require.Len(t, closed, 1)
	assert.InDelta(t, 0.001, open[0].Size+closed[0].Size, 1e-12)

	acct := virtAccount(l)
	assert.InDelta(t, 105, acct.Capital, 1e-9)
	assert.InDelta(t, usedBefore/2, acct.Used, 1e-9)
	requireReconciled(t, l)
}

func TestCloseFIFOAcrossTrades(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	first, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
	require.NoError(t, err)
	second, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.002, Price: 100000, Leverage: 10})
	require.NoError(t, err)

	// 0.0015 consumes the oldest trade fully, then splits the second.
	res, err := l.ClosePosition(ctx, "BTCUSDT", "Buy", fp(0.0015))
	require.NoError(t, err)
	require.Len(t, res.Closed, 2)

	assert.Equal(t, first.OrderID, res.Closed[0].OrderID)
	assert.InDelta(t, 0.001, res.Closed[0].Qty, 1e-12)
	assert.Equal(t, second.OrderID+"-C1", res.Closed[1].OrderID)
	assert.InDelta(t, 0.0005, res.Closed[1].Qty, 1e-12)

	open := l.Positions(ctx, "BTCUSDT")
	require.Len(t, open, 1)
	assert.Equal(t, second.OrderID, open[0].OrderID)
	assert.InDelta(t, 0.0015, open[0].Size, 1e-12)
	requireReconciled(t, l)
}

func TestCloseNoMatchIsNoOp(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	prices.set("BTCUSDT", 100000)

	res, err := l.ClosePosition(context.Background(), "BTCUSDT", "Buy", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "NotFound", res.Status)
	assert.Equal(t, 100.0, virtAccount(l).Available)
}

func TestCloseNoPriceIsNoOp(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, 100)

	_, err := l.ClosePosition(context.Background(), "ZZZUSDT", "Buy", nil)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestMarginConservedOverPartials(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.004, Price: 100000, Leverage: 10})
	require.NoError(t, err)
	reserved := virtAccount(l).Used
	assert.InDelta(t, 40, reserved, 1e-9)

	for i := 0; i < 4; i++ {
		_, err := l.ClosePosition(ctx, "BTCUSDT", "Buy", fp(0.001))
		require.NoError(t, err)
		requireReconciled(t, l)
	}

	// Sum of released margin equals the original reservation.
	assert.InDelta(t, 0, virtAccount(l).Used, 1e-9)
	assert.Empty(t, l.Positions(ctx, ""))
}

func TestConcurrentOrdersNeverDoubleSpend(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	// Each order needs margin 60 against available 100: exactly one of the
	// two concurrent orders may succeed, in either order.
	const workers = 2
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.PlaceOrder(ctx, OrderRequest{
				Symbol: "BTCUSDT", Side: "Buy", Qty: 0.006, Price: 100000, Leverage: 10,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	acct := virtAccount(l)
	assert.InDelta(t, 40, acct.Available, 1e-9)
	assert.InDelta(t, 60, acct.Used, 1e-9)
	requireReconciled(t, l)
}

func TestManyConcurrentOperationsKeepInvariant(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 10000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)
	prices.set("ETHUSDT", 3000)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			symbol := "BTCUSDT"
			if n%2 == 1 {
				symbol = "ETHUSDT"
			}
			for j := 0; j < 10; j++ {
				_, _ = l.PlaceOrder(ctx, OrderRequest{
					Symbol: symbol, Side: "Buy", Qty: 0.001, Price: 0, Leverage: 10,
				})
				_, _ = l.ClosePosition(ctx, symbol, "Buy", fp(0.0005))
				_ = l.Positions(ctx, "")
			}
		}(i)
	}
	wg.Wait()

	requireReconciled(t, l)
}

func TestDailyPnlCountsTodayOnly(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	today := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)

	// Yesterday: a +5 close.
	l.now = func() time.Time { return yesterday }
	_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
	require.NoError(t, err)
	prices.set("BTCUSDT", 105000)
	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)

	// Today: a -3 close.
	l.now = func() time.Time { return today }
	prices.set("BTCUSDT", 100000)
	_, err = l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
	require.NoError(t, err)
	prices.set("BTCUSDT", 97000)
	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)

	assert.InDelta(t, -3, l.DailyPnl(ctx), 1e-9)
}

func TestStats(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 1000)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	for i := 0; i < 2; i++ {
		_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
		require.NoError(t, err)
	}
	prices.set("BTCUSDT", 105000)
	_, err := l.ClosePosition(ctx, "BTCUSDT", "Buy", fp(0.001))
	require.NoError(t, err)
	prices.set("BTCUSDT", 95000)
	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)

	s := l.Stats()
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.ProfitableTrades)
	assert.InDelta(t, 50, s.WinRate, 1e-9)
	assert.InDelta(t, 0, s.TotalPnl, 1e-9) // +5 then -5
}

func TestSetStartingBalance(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	require.NoError(t, l.SetStartingBalance(store.ModeVirtual, 500))
	acct := virtAccount(l)
	assert.Equal(t, 500.0, acct.Capital)
	assert.Equal(t, 500.0, acct.Available)

	_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
	require.NoError(t, err)

	// Refused while a position is open.
	assert.Error(t, l.SetStartingBalance(store.ModeVirtual, 100))
}

func TestClosedTradesSurviveForHistory(t *testing.T) {
	t.Parallel()
	l, prices := newLedger(t, 100)
	ctx := context.Background()
	prices.set("BTCUSDT", 100000)

	_, err := l.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: "Buy", Qty: 0.001, Price: 100000, Leverage: 10})
	require.NoError(t, err)
	prices.set("BTCUSDT", 110000)
	_, err = l.ClosePosition(ctx, "BTCUSDT", "Buy", nil)
	require.NoError(t, err)

	closed := onlyClosed(l)
	require.Len(t, closed, 1)
	assert.Equal(t, store.StatusClosed, closed[0].Status)
	assert.NotNil(t, closed[0].ClosePrice)
	assert.NotNil(t, closed[0].CloseTime)
	assert.NotNil(t, closed[0].RealizedPnl)
}

// onlyClosed reads the persisted trades document and returns closed trades.
func onlyClosed(l *Ledger) []store.Trade {
	var out []store.Trade
	for _, tr := range l.store.ReadTrades() {
		if !tr.IsOpen() {
			out = append(out, tr)
		}
	}
	return out
}
