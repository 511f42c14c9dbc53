package market

import (
	"fmt"
	"strings"
)

// Side is the direction of a futures position. Buy is long, Sell is short.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

// ParseSide normalizes the side aliases used by venues and signal feeds
// ("LONG"/"SHORT", lowercase variants) into Buy/Sell.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, nil
	case "SELL", "SHORT":
		return Sell, nil
	}
	return "", fmt.Errorf("unrecognized side %q", s)
}

// Sign returns +1 for Buy and -1 for Sell, the multiplier applied to
// price moves when computing PnL.
func (s Side) Sign() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// Opposite returns the closing side for this side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}
