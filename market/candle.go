package market

import "time"

// Candle represents OHLCV candlestick data.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Ticker is a point-in-time snapshot of one symbol's last price.
type Ticker struct {
	Symbol    string
	LastPrice float64
	Change24h float64 // fractional 24h change, 0.05 = +5%
}
