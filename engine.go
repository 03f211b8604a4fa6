package xmf

import (
	"context"

	"github.com/etnz/xmf/date"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds the number of concurrent provider calls.
const DefaultWorkers = 8

// Source resolves market data for investments. Market is the production
// Source; it goes through the cache and the registered providers.
type Source interface {
	Quote(ctx context.Context, inv Investment) (Quote, error)
	History(ctx context.Context, inv Investment, span date.Span) (*date.History[float64], error)
	Metadata(ctx context.Context, inv Investment) (Metadata, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Engine computes valuations and analytics over a Source.
type Engine struct {
	src     Source
	workers int
}

// NewEngine returns an Engine issuing at most workers concurrent Source calls.
func NewEngine(src Source, workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{src: src, workers: workers}
}

// each calls f for every index in [0, n) on the bounded worker pool and waits.
// f stores its own result, typically at index i of a preallocated slice.
func (e *Engine) each(ctx context.Context, n int, f func(ctx context.Context, i int)) {
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range n {
		g.Go(func() error {
			f(ctx, i)
			return nil
		})
	}
	g.Wait()
}

// Outcome is a computed figure, or the reason why it is undefined.
type Outcome struct {
	Value float64
	Err   error
}

// OK reports whether the figure is defined.
func (o Outcome) OK() bool { return o.Err == nil }

func outcome(v float64, err error) Outcome { return Outcome{Value: v, Err: err} }
