package automate

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/quantroll/vex/journal"
	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/store"
	"github.com/quantroll/vex/vex"
)

// Exchange is the order surface the trader drives. *vex.Ledger satisfies it.
type Exchange interface {
	PlaceOrder(ctx context.Context, req vex.OrderRequest) (vex.OrderAck, error)
	Balance(mode string) store.CapitalAccount
}

// Options tunes the trading loop. Zero values fall back to the defaults
// below.
type Options struct {
	Symbols       []string
	Interval      time.Duration // per-symbol scan interval
	ErrorBackoff  time.Duration // wait after a failed iteration
	MinConfidence float64       // signals below this are skipped
	RiskPerTrade  float64       // fraction of available balance risked per trade
	MinSLPoints   float64       // tightest acceptable stop distance
	MaxSLPoints   float64       // widest acceptable stop distance
	Leverage      int
	Mode          string          // capital mode, defaults to virtual
	Journal       journal.Journal // optional signal history sink
}

const (
	defaultInterval     = 60 * time.Second
	defaultErrorBackoff = 30 * time.Second
	defaultMinConf      = 0.6
	defaultRiskPerTrade = 0.01
	stopTimeout         = 5 * time.Second
)

// Stats is a snapshot of loop counters since Start.
type Stats struct {
	SignalsGenerated int
	TradesExecuted   int
	Successful       int
	Failed           int
	SuccessRate      float64 // percent of executed orders that filled
	Uptime           time.Duration
}

// Trader runs one scan goroutine per symbol, turning generator signals into
// virtual orders. Counters are guarded by mu; the per-symbol workers never
// share iteration state.
type Trader struct {
	opts  Options
	ex    Exchange
	gen   Generator
	score Scorer
	log   *slog.Logger

	mu      sync.Mutex
	stats   Stats
	started time.Time
	running bool

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// New builds a Trader. Generator is required; scorer may be nil, in which
// case the generator's own confidence is used as-is.
func New(ex Exchange, gen Generator, score Scorer, opts Options, log *slog.Logger) *Trader {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = defaultErrorBackoff
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConf
	}
	if opts.RiskPerTrade <= 0 {
		opts.RiskPerTrade = defaultRiskPerTrade
	}
	if opts.Mode == "" {
		opts.Mode = store.ModeVirtual
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Trader{opts: opts, ex: ex, gen: gen, score: score, log: log}
}

// Start launches one worker per configured symbol. It returns immediately;
// workers run until Stop or until ctx is cancelled.
func (t *Trader) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.started = time.Now()
	t.stats = Stats{}
	t.mu.Unlock()

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})

	for _, symbol := range t.opts.Symbols {
		t.wg.Add(1)
		go t.worker(ctx, symbol)
	}
	go func() {
		t.wg.Wait()
		close(t.done)
	}()

	t.log.Info("trading loop started",
		"symbols", t.opts.Symbols, "interval", t.opts.Interval)
}

// Stop cancels the workers and waits for them to drain. Workers stuck past
// the join timeout are abandoned rather than blocking shutdown.
func (t *Trader) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	t.cancel()
	select {
	case <-t.done:
		t.log.Info("trading loop stopped")
	case <-time.After(stopTimeout):
		t.log.Warn("trading loop stop timed out, abandoning workers")
	}
}

// Stats returns a snapshot of the loop counters.
func (t *Trader) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	if s.TradesExecuted > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TradesExecuted) * 100
	}
	if !t.started.IsZero() {
		s.Uptime = time.Since(t.started)
	}
	return s
}

func (t *Trader) worker(ctx context.Context, symbol string) {
	defer t.wg.Done()

	wait := time.Duration(0) // first scan runs immediately
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := t.scan(ctx, symbol); err != nil {
			t.log.Warn("scan failed", "symbol", symbol, "error", err)
			t.mu.Lock()
			t.stats.Failed++
			t.mu.Unlock()
			wait = t.opts.ErrorBackoff
			continue
		}
		wait = t.opts.Interval
	}
}

// scan runs one iteration for a symbol: generate, score, filter, size,
// execute.
func (t *Trader) scan(ctx context.Context, symbol string) error {
	signals, err := t.gen.Signals(ctx, symbol)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.stats.SignalsGenerated += len(signals)
	t.mu.Unlock()

	for _, sig := range signals {
		if err := t.opts.Journal.AddSignal(journal.SignalRecord{
			Symbol: sig.Symbol, Side: sig.Side, Score: sig.Confidence,
			Entry: sig.Entry, TakeProfit: sig.TakeProfit, StopLoss: sig.StopLoss,
			Leverage: t.opts.Leverage, Strategy: sig.Reason, CreatedAt: time.Now(),
		}); err != nil {
			t.log.Debug("journal signal", "symbol", sig.Symbol, "error", err)
		}
		conf := sig.Confidence
		if t.score != nil {
			c, err := t.score.Score(ctx, sig)
			if err != nil {
				t.log.Debug("scoring failed", "symbol", symbol, "error", err)
				continue
			}
			conf = c
		}
		if conf < t.opts.MinConfidence {
			t.log.Debug("signal below confidence floor",
				"symbol", symbol, "confidence", conf)
			continue
		}
		if !t.acceptable(sig) {
			t.log.Debug("signal outside risk limits",
				"symbol", symbol, "entry", sig.Entry, "sl", sig.StopLoss)
			continue
		}

		qty := t.size(sig)
		if qty <= 0 {
			continue
		}
		t.execute(ctx, sig, qty, conf)
	}
	return nil
}

// acceptable checks the stop band and that SL/TP sit on the correct side of
// the entry for the signal's direction.
func (t *Trader) acceptable(sig Signal) bool {
	dist := math.Abs(sig.Entry - sig.StopLoss)
	if t.opts.MinSLPoints > 0 && dist < t.opts.MinSLPoints {
		return false
	}
	if t.opts.MaxSLPoints > 0 && dist > t.opts.MaxSLPoints {
		return false
	}
	side, err := market.ParseSide(sig.Side)
	if err != nil {
		return false
	}
	if side == market.Buy {
		return sig.TakeProfit > sig.Entry && sig.Entry > sig.StopLoss
	}
	return sig.TakeProfit < sig.Entry && sig.Entry < sig.StopLoss
}

// size computes the order quantity from the risk budget: the loss at the
// stop equals RiskPerTrade of the available balance.
func (t *Trader) size(sig Signal) float64 {
	dist := math.Abs(sig.Entry - sig.StopLoss)
	if dist <= 0 {
		return 0
	}
	acct := t.ex.Balance(t.opts.Mode)
	return acct.Available * t.opts.RiskPerTrade / dist
}

func (t *Trader) execute(ctx context.Context, sig Signal, qty, conf float64) {
	sl, tp := sig.StopLoss, sig.TakeProfit
	_, err := t.ex.PlaceOrder(ctx, vex.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Qty:        qty,
		Price:      sig.Entry,
		StopLoss:   &sl,
		TakeProfit: &tp,
		Leverage:   t.opts.Leverage,
	})

	t.mu.Lock()
	t.stats.TradesExecuted++
	if err != nil {
		t.stats.Failed++
	} else {
		t.stats.Successful++
	}
	t.mu.Unlock()

	if err != nil {
		t.log.Warn("order rejected",
			"symbol", sig.Symbol, "side", sig.Side, "qty", qty, "error", err)
		return
	}
	t.log.Info("signal executed",
		"symbol", sig.Symbol, "side", sig.Side, "qty", qty,
		"confidence", conf, "reason", sig.Reason)
}
