package automate

import "context"

// Signal is one candidate trade produced by a generator. Entry, StopLoss and
// TakeProfit are absolute price levels; Confidence is 0..1.
type Signal struct {
	Symbol     string
	Side       string
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Reason     string
}

// Generator produces trade signals for one symbol. Implementations should be
// deterministic for a given market state and return no signals (not an error)
// when nothing qualifies.
type Generator interface {
	Signals(ctx context.Context, symbol string) ([]Signal, error)
}

// Scorer re-scores a signal before execution. A Scorer may raise or lower the
// generator's confidence; the trader executes only signals that clear its
// minimum after scoring.
type Scorer interface {
	Score(ctx context.Context, sig Signal) (float64, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, symbol string) ([]Signal, error)

func (f GeneratorFunc) Signals(ctx context.Context, symbol string) ([]Signal, error) {
	return f(ctx, symbol)
}
