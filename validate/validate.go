// Package validate enforces venue order constraints and adjusts requests to
// the nearest acceptable values. It never errors on merely out-of-range
// input; the result carries valid=false and a reason instead.
package validate

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/quantroll/vex/market"
)

// LimitsSource provides venue instrument metadata. The exchange gateway
// implements this; a nil source means pure simulation.
type LimitsSource interface {
	InstrumentLimits(ctx context.Context, symbol string) (market.InstrumentLimits, error)
}

// Request is the order to validate. StopLoss/TakeProfit are optional.
type Request struct {
	Symbol     string
	Qty        float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
}

// Result is the validation outcome. When Valid, the adjusted values replace
// the requested ones.
type Result struct {
	Valid      bool
	Reason     string
	Qty        float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
}

// Validator adjusts orders against venue limits when a source is available
// and falls back to simplified simulation rules otherwise. Stateless and
// safe for concurrent use.
type Validator struct {
	limits LimitsSource
}

// New returns a validator. limits may be nil for pure simulation.
func New(limits LimitsSource) *Validator {
	return &Validator{limits: limits}
}

func invalid(reason string) Result {
	return Result{Reason: reason}
}

// Validate applies the constraint rules to req. An error is returned only
// for unexpected faults while fetching venue metadata; callers treat that
// as a validation failure.
func (v *Validator) Validate(ctx context.Context, req Request) (Result, error) {
	if req.Qty <= 0 || math.IsNaN(req.Qty) || math.IsInf(req.Qty, 0) {
		return invalid(fmt.Sprintf("quantity must be positive, got %v", req.Qty)), nil
	}
	if req.Price < 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return invalid(fmt.Sprintf("price must be non-negative, got %v", req.Price)), nil
	}
	if req.StopLoss != nil && *req.StopLoss <= 0 {
		return invalid(fmt.Sprintf("stop loss must be positive, got %v", *req.StopLoss)), nil
	}
	if req.TakeProfit != nil && *req.TakeProfit <= 0 {
		return invalid(fmt.Sprintf("take profit must be positive, got %v", *req.TakeProfit)), nil
	}

	res := Result{
		Valid:      true,
		Qty:        req.Qty,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}

	if v.limits == nil {
		// Simplified simulation rule: whole-unit symbols trade integer
		// quantities, everything else passes through.
		if market.WholeUnit(req.Symbol) {
			res.Qty = math.Floor(req.Qty)
			if res.Qty <= 0 {
				return invalid(fmt.Sprintf("quantity %v rounds to zero whole units", req.Qty)), nil
			}
		}
		return res, nil
	}

	lim, err := v.limits.InstrumentLimits(ctx, req.Symbol)
	if err != nil {
		return Result{}, fmt.Errorf("fetch limits for %s: %w", req.Symbol, err)
	}

	if lim.MinQty > 0 && req.Qty < lim.MinQty {
		return invalid(fmt.Sprintf("quantity %v below venue minimum %v", req.Qty, lim.MinQty)), nil
	}
	if lim.MaxQty > 0 && req.Qty > lim.MaxQty {
		return invalid(fmt.Sprintf("quantity %v above venue maximum %v", req.Qty, lim.MaxQty)), nil
	}
	if lim.QtyStep > 0 {
		res.Qty = FloorStep(req.Qty, lim.QtyStep)
		if res.Qty <= 0 {
			return invalid(fmt.Sprintf("quantity %v rounds to zero at step %v", req.Qty, lim.QtyStep)), nil
		}
	}
	if lim.TickSize > 0 {
		if res.Price > 0 {
			res.Price = RoundTick(res.Price, lim.TickSize)
		}
		if res.StopLoss != nil {
			sl := RoundTick(*res.StopLoss, lim.TickSize)
			res.StopLoss = &sl
		}
		if res.TakeProfit != nil {
			tp := RoundTick(*res.TakeProfit, lim.TickSize)
			res.TakeProfit = &tp
		}
	}
	return res, nil
}

// FloorStep rounds qty down to the nearest multiple of step. Decimal
// arithmetic avoids 0.30000000000000004-style drift on small crypto steps.
func FloorStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	f, _ := q.Div(s).Floor().Mul(s).Float64()
	return f
}

// RoundTick rounds price to the nearest multiple of tick, half away from
// zero (round-half-up for the positive prices seen here).
func RoundTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	f, _ := p.Div(t).Round(0).Mul(t).Float64()
	return f
}
