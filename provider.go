package xmf

import (
	"context"
	"time"

	"github.com/etnz/xmf/date"
	"github.com/shopspring/decimal"
)

// Quote is the latest price of an instrument.
type Quote struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Time          time.Time       `json:"time"`
	PreviousClose decimal.Decimal `json:"previous_close"` // zero when unknown
}

// DayChange returns the relative change since the previous close.
func (q Quote) DayChange() (float64, bool) {
	if !q.PreviousClose.IsPositive() {
		return 0, false
	}
	return q.Price.Div(q.PreviousClose).Sub(decimal.NewFromInt(1)).InexactFloat64(), true
}

// Metadata describes an instrument.
type Metadata struct {
	Name         string   `json:"name,omitempty"`
	Category     string   `json:"category,omitempty"`      // empty when the provider does not know it
	ExpenseRatio *Percent `json:"expense_ratio,omitempty"` // nil when unknown
}

// Provider fetches market data for one family of identifiers.
//
// Implementations validate identifiers before any network call and wrap one of
// ErrInvalidIdentifier, ErrNotFound, ErrRateLimited, ErrUnavailable or
// ErrSchemaChanged in their errors.
type Provider interface {
	// Name identifies the provider in cache keys, it must be stable.
	Name() string
	FetchQuote(ctx context.Context, id string) (Quote, error)
	// FetchHistory returns daily prices covering at least span, ascending.
	FetchHistory(ctx context.Context, id string, span date.Span) (*date.History[float64], error)
	FetchMetadata(ctx context.Context, id string) (Metadata, error)
}

// RateProvider fetches currency conversion rates.
type RateProvider interface {
	Name() string
	// FetchRate returns the amount of 'to' currency for one unit of 'from'.
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}
