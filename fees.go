package xmf

import (
	"context"

	"github.com/shopspring/decimal"
)

// Fee is the expense ratio of one priced holding.
type Fee struct {
	Holding
	Category     string
	ExpenseRatio *Percent // nil when unknown
	AnnualCost   *Money   // yearly cost at the current value, nil when unknown
	MetadataErr  error
}

// FeeReport lists expense ratios of the priced holdings of a portfolio.
type FeeReport struct {
	Portfolio  string
	Currency   string
	Funds      []Fee
	Weighted   *Percent // value weighted ratio over the known ratios, nil when none is known
	AnnualCost Money    // sum of the known annual costs
}

// Fees looks up the expense ratio of every priced holding of v.
func (e *Engine) Fees(ctx context.Context, v Valuation) FeeReport {
	r := FeeReport{Portfolio: v.Portfolio, Currency: v.Currency, AnnualCost: M(0, v.Currency)}
	for _, h := range v.Holdings {
		if priced(h.Investment) {
			r.Funds = append(r.Funds, Fee{Holding: h})
		}
	}
	e.each(ctx, len(r.Funds), func(ctx context.Context, i int) {
		f := &r.Funds[i]
		m, err := e.src.Metadata(ctx, f.Investment)
		if err != nil {
			f.MetadataErr = err
			return
		}
		f.Category = NormalizeCategory(m.Category)
		f.ExpenseRatio = m.ExpenseRatio
		if m.Name != "" && f.Name == f.ID() {
			f.Name = m.Name
		}
	})

	cs := make([]Contribution, 0, len(r.Funds))
	for i := range r.Funds {
		f := &r.Funds[i]
		if f.ExpenseRatio == nil {
			cs = append(cs, Contribution{Outcome: Outcome{Err: ErrNoData}})
			continue
		}
		cs = append(cs, Contribution{Weight: f.Weight, Outcome: Outcome{Value: float64(*f.ExpenseRatio)}})
		if f.OK() {
			cost := f.Converted.Mul(decimal.NewFromFloat(float64(*f.ExpenseRatio) / 100))
			f.AnnualCost = &cost
			r.AnnualCost = r.AnnualCost.Add(cost)
		}
	}
	if w, err := WeightedChange(cs); err == nil {
		p := Percent(w)
		r.Weighted = &p
	}
	return r
}
