package journal

// Nop discards every record. Used when no journal path is configured and in
// tests that don't care about history.
type Nop struct{}

func (Nop) AddTrade(TradeRecord) error   { return nil }
func (Nop) AddSignal(SignalRecord) error { return nil }
func (Nop) OpenTrades() ([]TradeRecord, error) {
	return nil, nil
}
func (Nop) Trades(TradeFilter) ([]TradeRecord, error) {
	return nil, nil
}
func (Nop) CloseTrade(string, float64, float64, string) error { return nil }
func (Nop) Close() error                                      { return nil }
