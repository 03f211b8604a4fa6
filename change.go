package xmf

import (
	"context"
	"fmt"

	"github.com/etnz/xmf/date"
)

// PeriodChange returns the relative change of h over span, from the price at
// the span start (or the latest earlier one) to the latest price.
// Max spans start at the first point.
func PeriodChange(h *date.History[float64], span date.Span) (float64, error) {
	if h == nil || h.Len() == 0 {
		return 0, fmt.Errorf("%w: empty history", ErrNoData)
	}
	end, last := h.Latest()
	on, base, ok := startPoint(h, span)
	if !ok || !on.Before(end) {
		return 0, fmt.Errorf("%w: no price before %s over %s", ErrNoData, end, span)
	}
	if base <= 0 {
		return 0, fmt.Errorf("%w: price %v on %s", ErrNoData, base, on)
	}
	return (last - base) / base, nil
}

// startPoint returns the point at which a span ending on the latest point begins.
func startPoint(h *date.History[float64], span date.Span) (date.Date, float64, bool) {
	end, _ := h.Latest()
	start, bounded := span.Start(end)
	if !bounded {
		on, v := h.First()
		return on, v, true
	}
	return h.PointAsOf(start)
}

// Contribution is one instrument's part in a weighted figure.
type Contribution struct {
	Weight float64
	Outcome
}

// WeightedChange returns Σ wᵢcᵢ / Σ wᵢ over the contributions with a defined figure.
//
// Undefined figures are excluded from both sums, so the result is not diluted
// by instruments lacking data. It fails with ErrNoData when nothing is left.
func WeightedChange(cs []Contribution) (float64, error) {
	var sum, weights float64
	for _, c := range cs {
		if !c.OK() || c.Weight <= 0 {
			continue
		}
		sum += c.Weight * c.Value
		weights += c.Weight
	}
	if weights == 0 {
		return 0, fmt.Errorf("%w: no weighted instrument with data", ErrNoData)
	}
	return sum / weights, nil
}

// InstrumentChange holds the changes of one holding, one per report span.
type InstrumentChange struct {
	Holding
	Changes []Outcome
}

// ChangeReport holds period changes of the priced holdings of a portfolio.
type ChangeReport struct {
	Portfolio   string
	Spans       []date.Span
	Instruments []InstrumentChange // priced holdings in the portfolio order
	Total       []Outcome          // weighted portfolio change per span
}

// AllFailed reports whether no instrument has any defined change.
func (r ChangeReport) AllFailed() bool {
	return allFailed(r.Instruments, func(i InstrumentChange) []Outcome { return i.Changes })
}

// Changes computes the change of every priced holding of v over each span.
//
// One history is fetched per instrument, covering the longest span.
func (e *Engine) Changes(ctx context.Context, v Valuation, spans []date.Span) ChangeReport {
	r := ChangeReport{Portfolio: v.Portfolio, Spans: spans}
	for _, h := range v.Holdings {
		if priced(h.Investment) {
			r.Instruments = append(r.Instruments, InstrumentChange{Holding: h, Changes: make([]Outcome, len(spans))})
		}
	}
	longest := date.Longest(spans...)
	e.each(ctx, len(r.Instruments), func(ctx context.Context, i int) {
		in := &r.Instruments[i]
		h, err := e.src.History(ctx, in.Investment, longest)
		for j, span := range spans {
			if err != nil {
				in.Changes[j] = Outcome{Err: err}
				continue
			}
			in.Changes[j] = outcome(PeriodChange(h, span))
		}
	})
	r.Total = weighted(len(spans), r.Instruments, func(i InstrumentChange) (float64, []Outcome) { return i.Weight, i.Changes })
	return r
}

// weighted aggregates per instrument outcomes into n portfolio outcomes.
func weighted[T any](n int, items []T, get func(T) (float64, []Outcome)) []Outcome {
	total := make([]Outcome, n)
	for j := range total {
		cs := make([]Contribution, 0, len(items))
		for _, item := range items {
			w, outcomes := get(item)
			cs = append(cs, Contribution{Weight: w, Outcome: outcomes[j]})
		}
		total[j] = outcome(WeightedChange(cs))
	}
	return total
}

// allFailed reports whether items is not empty and none of their outcomes is defined.
func allFailed[T any](items []T, get func(T) []Outcome) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		for _, o := range get(item) {
			if o.OK() {
				return false
			}
		}
	}
	return true
}
