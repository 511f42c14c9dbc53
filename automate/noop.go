package automate

import "context"

// Hold is a generator that never signals. It keeps the trading loop (and
// its SL/TP monitoring side effects) running until a real generator is
// plugged in.
type Hold struct{}

func (Hold) Signals(context.Context, string) ([]Signal, error) {
	return nil, nil
}
