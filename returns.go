package xmf

import (
	"context"
	"fmt"
	"iter"
	"math"

	"github.com/etnz/xmf/date"
)

// DaysPerYear is the average year length used to annualize returns.
const DaysPerYear = 365.25

// CAGR returns the compound annual growth rate turning start on from into end on to.
func CAGR(start, end float64, from, to date.Date) (float64, error) {
	days := to.Sub(from)
	if days < 1 {
		return 0, fmt.Errorf("%w: %d days held", ErrInsufficientHistory, days)
	}
	if start <= 0 {
		return 0, fmt.Errorf("%w: start value %v", ErrInsufficientHistory, start)
	}
	if end < 0 {
		return 0, fmt.Errorf("%w: end value %v", ErrNoData, end)
	}
	return math.Pow(end/start, DaysPerYear/float64(days)) - 1, nil
}

// SeriesCAGR returns the CAGR of h over span, ending on its latest point.
// It fails with ErrInsufficientHistory when h does not reach back span.
func SeriesCAGR(h *date.History[float64], span date.Span) (float64, error) {
	if h == nil || h.Len() == 0 {
		return 0, fmt.Errorf("%w: empty history", ErrInsufficientHistory)
	}
	end, last := h.Latest()
	on, base, ok := startPoint(h, span)
	if !ok {
		return 0, fmt.Errorf("%w: no price %s before %s", ErrInsufficientHistory, span, end)
	}
	return CAGR(base, last, on, end)
}

// Window is one rolling return.
type Window struct {
	Start date.Date
	End   date.Date
	CAGR  float64
}

// Rolling returns the CAGR over every window of length window whose start
// steps by stride from the first point of h.
//
// The sequence is lazy and can be ranged over several times. Windows ending
// after the latest point, or without a defined CAGR, are skipped.
func Rolling(h *date.History[float64], window date.Span, stride date.Period) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if h == nil || h.Len() < 2 {
			return
		}
		first, _ := h.First()
		last, _ := h.Latest()
		for k := 0; ; k++ {
			start := stride.Step(first, k)
			end, bounded := window.End(start)
			if !bounded || end.After(last) {
				return
			}
			from, sv, _ := h.PointAsOf(start)
			to, ev, _ := h.PointAsOf(end)
			c, err := CAGR(sv, ev, from, to)
			if err != nil {
				continue
			}
			if !yield(Window{Start: start, End: end, CAGR: c}) {
				return
			}
		}
	}
}

// RollingStats summarizes a rolling return sequence.
type RollingStats struct {
	Count    int
	Min, Max float64
	Mean     float64
	Positive int    // windows with a positive return
	Last     Window // most recent window
}

// Summarize folds windows into RollingStats without materializing them.
func Summarize(windows iter.Seq[Window]) RollingStats {
	var s RollingStats
	var sum float64
	for w := range windows {
		if s.Count == 0 || w.CAGR < s.Min {
			s.Min = w.CAGR
		}
		if s.Count == 0 || w.CAGR > s.Max {
			s.Max = w.CAGR
		}
		if w.CAGR > 0 {
			s.Positive++
		}
		sum += w.CAGR
		s.Count++
		s.Last = w
	}
	if s.Count > 0 {
		s.Mean = sum / float64(s.Count)
	}
	return s
}

// RollingSpec selects rolling returns in a ReturnsReport.
type RollingSpec struct {
	Window date.Span
	Stride date.Period
}

// InstrumentReturns holds the returns of one holding.
type InstrumentReturns struct {
	Holding
	CAGR    []Outcome     // one per report span
	Rolling *RollingStats // nil unless rolling returns were requested

	HistoryErr error // history failure, also reported in CAGR
}

// ReturnsReport holds the annualized returns of the priced holdings of a portfolio.
type ReturnsReport struct {
	Portfolio   string
	Spans       []date.Span
	Rolling     *RollingSpec
	Instruments []InstrumentReturns
	Total       []Outcome // weighted portfolio CAGR per span
}

// AllFailed reports whether no instrument has any defined return.
func (r ReturnsReport) AllFailed() bool {
	for _, in := range r.Instruments {
		if in.Rolling != nil && in.Rolling.Count > 0 {
			return false
		}
	}
	return allFailed(r.Instruments, func(i InstrumentReturns) []Outcome { return i.CAGR })
}

// Returns computes the CAGR of every priced holding of v over each span and,
// when rolling is not nil, their rolling returns over the full history.
func (e *Engine) Returns(ctx context.Context, v Valuation, spans []date.Span, rolling *RollingSpec) ReturnsReport {
	r := ReturnsReport{Portfolio: v.Portfolio, Spans: spans, Rolling: rolling}
	for _, h := range v.Holdings {
		if priced(h.Investment) {
			r.Instruments = append(r.Instruments, InstrumentReturns{Holding: h, CAGR: make([]Outcome, len(spans))})
		}
	}
	span := date.Longest(spans...)
	if rolling != nil {
		span = date.Max
	}
	e.each(ctx, len(r.Instruments), func(ctx context.Context, i int) {
		in := &r.Instruments[i]
		h, err := e.src.History(ctx, in.Investment, span)
		if err != nil {
			in.HistoryErr = err
			for j := range spans {
				in.CAGR[j] = Outcome{Err: err}
			}
			return
		}
		for j, s := range spans {
			in.CAGR[j] = outcome(SeriesCAGR(h, s))
		}
		if rolling != nil {
			stats := Summarize(Rolling(h, rolling.Window, rolling.Stride))
			in.Rolling = &stats
		}
	})
	r.Total = weighted(len(spans), r.Instruments, func(i InstrumentReturns) (float64, []Outcome) { return i.Weight, i.CAGR })
	return r
}
