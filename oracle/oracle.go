// Package oracle resolves a mark price for a symbol. It prefers the live
// venue and falls back to a static table for a known symbol set, so that
// pure simulation keeps working with the network down.
package oracle

import (
	"context"
	"log/slog"

	"github.com/quantroll/vex/market"
)

// PriceSource yields a live last price for a symbol. The venue gateway
// implements this.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Oracle is stateless and safe for concurrent use.
type Oracle struct {
	src PriceSource
	log *slog.Logger
}

// New returns an oracle over src. src may be nil, in which case only the
// fallback table is consulted.
func New(src PriceSource, log *slog.Logger) *Oracle {
	if log == nil {
		log = slog.Default()
	}
	return &Oracle{src: src, log: log}
}

// Price returns the current mark price for symbol, or 0 when no price is
// available from either the live source or the fallback table. Callers must
// treat 0 as a hard stop: nothing may be priced, sized, or divided by it.
func (o *Oracle) Price(ctx context.Context, symbol string) float64 {
	if o.src != nil {
		p, err := o.src.CurrentPrice(ctx, symbol)
		if err == nil && p > 0 {
			return p
		}
		if err != nil {
			o.log.Warn("live price unavailable, trying fallback", "symbol", symbol, "error", err)
		}
	}
	if p, ok := market.DefaultPrices[symbol]; ok {
		return p
	}
	return 0
}
