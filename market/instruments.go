package market

import "strings"

// InstrumentLimits carries the venue lot and price filters used to adjust
// incoming orders to exchange-acceptable values.
type InstrumentLimits struct {
	Symbol   string
	MinQty   float64
	MaxQty   float64
	QtyStep  float64
	TickSize float64
}

// DefaultPrices is the static fallback table used when no live price is
// available. A symbol missing from this table has no fallback.
var DefaultPrices = map[string]float64{
	"BTCUSDT":  100000,
	"ETHUSDT":  3500,
	"SOLUSDT":  200,
	"BNBUSDT":  700,
	"XRPUSDT":  2.5,
	"ADAUSDT":  1.0,
	"DOGEUSDT": 0.4,
}

// wholeUnit lists symbols conventionally traded in whole contract units.
// Without venue metadata their order quantity is floored to an integer.
var wholeUnit = map[string]bool{
	"DOGEUSDT": true,
	"SHIBUSDT": true,
	"PEPEUSDT": true,
	"XRPUSDT":  true,
	"ADAUSDT":  true,
}

// WholeUnit reports whether the symbol trades in whole units only.
func WholeUnit(symbol string) bool {
	return wholeUnit[strings.ToUpper(symbol)]
}

// IsUSDT reports whether the symbol is a USDT-quoted linear contract.
// The assistant only trades USDT perpetuals.
func IsUSDT(symbol string) bool {
	return strings.HasSuffix(strings.ToUpper(symbol), "USDT")
}
