package xmf

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/etnz/xmf/date"
	"github.com/shopspring/decimal"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// stock and fund build investments from float units.
func stock(symbol string, units float64) Stock {
	return Stock{Symbol: symbol, Units: decimal.NewFromFloat(units)}
}

func fund(isin string, units float64) MutualFund {
	return MutualFund{ISIN: isin, Units: decimal.NewFromFloat(units)}
}

func deposit(name string, value float64, currency string) FixedDeposit {
	return FixedDeposit{Name: name, Value: decimal.NewFromFloat(value), Currency: currency}
}

// fakeSource is an in memory Source that counts its calls.
type fakeSource struct {
	quotes    map[string]Quote
	histories map[string]*date.History[float64]
	metadata  map[string]Metadata
	rates     map[string]float64 // "EURUSD" -> 1.1
	errs      map[string]error   // by investment id, for every call

	mu    sync.Mutex
	calls map[string]int // "quote AAPL", "rate EURUSD"...
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		quotes:    make(map[string]Quote),
		histories: make(map[string]*date.History[float64]),
		metadata:  make(map[string]Metadata),
		rates:     make(map[string]float64),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (s *fakeSource) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

func (s *fakeSource) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[call]++
}

// quote registers a quote of price in currency.
func (s *fakeSource) quote(id string, price float64, currency string) {
	s.quotes[id] = Quote{ID: id, Price: decimal.NewFromFloat(price), Currency: currency}
}

func (s *fakeSource) Quote(ctx context.Context, inv Investment) (Quote, error) {
	s.record("quote " + inv.ID())
	if err := s.errs[inv.ID()]; err != nil {
		return Quote{}, err
	}
	q, ok := s.quotes[inv.ID()]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNotFound, inv.ID())
	}
	return q, nil
}

func (s *fakeSource) History(ctx context.Context, inv Investment, span date.Span) (*date.History[float64], error) {
	s.record("history " + inv.ID())
	if err := s.errs[inv.ID()]; err != nil {
		return nil, err
	}
	h, ok := s.histories[inv.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, inv.ID())
	}
	return h, nil
}

func (s *fakeSource) Metadata(ctx context.Context, inv Investment) (Metadata, error) {
	s.record("metadata " + inv.ID())
	if err := s.errs[inv.ID()]; err != nil {
		return Metadata{}, err
	}
	m, ok := s.metadata[inv.ID()]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, inv.ID())
	}
	return m, nil
}

func (s *fakeSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	s.record("rate " + from + to)
	r, ok := s.rates[from+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s%s=X", ErrNotFound, from, to)
	}
	return decimal.NewFromFloat(r), nil
}

// series builds a history from alternating date strings and values.
func series(points ...any) *date.History[float64] {
	h := new(date.History[float64])
	for i := 0; i+1 < len(points); i += 2 {
		h.Append(date.MustParse(points[i].(string)), points[i+1].(float64))
	}
	return h
}

// daily builds a history with one point a day from first to last, the value
// being 100 plus the number of days since first.
func daily(first, last string) *date.History[float64] {
	h := new(date.History[float64])
	start := date.MustParse(first)
	for on := start; !on.After(date.MustParse(last)); on = on.Add(1) {
		h.Append(on, 100+float64(on.Sub(start)))
	}
	return h
}

// near compares floats with an absolute tolerance.
func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
