package xmf

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Holding is the valuation of one investment.
type Holding struct {
	Investment Investment
	Name       string          // display name, the quote's name when known
	Units      decimal.Decimal // zero for deposits
	Price      Money           // native price, zero for deposits
	Value      Money           // native value
	Converted  Money           // value in the portfolio currency
	Weight     float64         // Converted / total, 0 when the total is zero
	DayChange  Outcome         // change since the previous close, ErrNoData for deposits
	Err        error           // why the holding could not be valued
}

// ID returns the investment identifier.
func (h Holding) ID() string { return h.Investment.ID() }

// OK reports whether the holding was valued.
func (h Holding) OK() bool { return h.Err == nil }

// Valuation is the value of a portfolio at the latest known prices.
type Valuation struct {
	Portfolio string
	Currency  string
	Holdings  []Holding // in the portfolio order
	Total     Money     // sum of the valued holdings
	ZeroTotal bool      // the total is zero, every weight is zero
}

// Failed returns the number of holdings that could not be valued.
func (v Valuation) Failed() int {
	n := 0
	for _, h := range v.Holdings {
		if !h.OK() {
			n++
		}
	}
	return n
}

// Partial reports whether some holdings are missing from the total.
func (v Valuation) Partial() bool { return v.Failed() > 0 }

// AllFailed reports whether no holding at all could be valued.
func (v Valuation) AllFailed() bool { return len(v.Holdings) > 0 && v.Failed() == len(v.Holdings) }

// Warning returns ErrDivisionGuard when the total is zero.
func (v Valuation) Warning() error {
	if v.ZeroTotal {
		return fmt.Errorf("portfolio %q: %w", v.Portfolio, ErrDivisionGuard)
	}
	return nil
}

// Value values every investment of p in p's currency.
//
// Failures are recorded on the holding and the holding is left out of the
// total. Each currency pair is resolved once.
func (e *Engine) Value(ctx context.Context, p Portfolio) Valuation {
	v := Valuation{
		Portfolio: p.Name,
		Currency:  p.Currency,
		Holdings:  make([]Holding, len(p.Investments)),
	}
	e.each(ctx, len(p.Investments), func(ctx context.Context, i int) {
		v.Holdings[i] = e.holding(ctx, p.Investments[i], p.Currency)
	})

	var currencies []string
	for _, h := range v.Holdings {
		if c := h.Value.Currency(); h.OK() && c != p.Currency && !slices.Contains(currencies, c) {
			currencies = append(currencies, c)
		}
	}
	rates := make([]decimal.Decimal, len(currencies))
	rateErrs := make([]error, len(currencies))
	e.each(ctx, len(currencies), func(ctx context.Context, i int) {
		rates[i], rateErrs[i] = e.src.Rate(ctx, currencies[i], p.Currency)
	})

	total := M(0, p.Currency)
	for i := range v.Holdings {
		h := &v.Holdings[i]
		if !h.OK() {
			continue
		}
		if c := h.Value.Currency(); c == p.Currency {
			h.Converted = h.Value
		} else {
			j := slices.Index(currencies, c)
			if err := rateErrs[j]; err != nil {
				h.Err = fmt.Errorf("cannot convert %s to %s: %w", c, p.Currency, err)
				continue
			}
			h.Converted = h.Value.Convert(rates[j], p.Currency)
		}
		total = total.Add(h.Converted)
	}
	v.Total = total

	if !total.IsPositive() {
		v.ZeroTotal = true
		return v
	}
	for i := range v.Holdings {
		if h := &v.Holdings[i]; h.OK() {
			h.Weight = h.Converted.Ratio(total)
		}
	}
	return v
}

// holding resolves the native value of one investment.
func (e *Engine) holding(ctx context.Context, inv Investment, currency string) Holding {
	h := Holding{Investment: inv, Name: inv.ID()}
	switch inv := inv.(type) {
	case FixedDeposit:
		c := inv.Currency
		if c == "" {
			c = currency
		}
		h.Value = M(inv.Value, c)
		h.DayChange = Outcome{Err: ErrNoData}
	case Stock, MutualFund:
		q, err := e.src.Quote(ctx, inv)
		if err != nil {
			h.Err = err
			return h
		}
		if q.Name != "" {
			h.Name = q.Name
		}
		h.Units = units(inv)
		h.Price = M(q.Price, q.Currency)
		h.Value = h.Price.Mul(h.Units)
		h.DayChange = Outcome{Err: fmt.Errorf("%w: no previous close", ErrNoData)}
		if dc, ok := q.DayChange(); ok {
			h.DayChange = Outcome{Value: dc}
		}
	default:
		h.Err = fmt.Errorf("%w for %T", ErrNoProvider, inv)
	}
	return h
}
