// Package yahoo quotes stocks, ETFs and currency rates with the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/date"
	"github.com/etnz/xmf/remote"
	"github.com/shopspring/decimal"
)

// Name identifies the provider in cache keys.
const Name = "yahoo"

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=_]{1,32}$`)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Provider implements xmf.Provider and xmf.RateProvider.
type Provider struct {
	base   string
	client *remote.Client
}

// New returns a Provider querying baseURL, like https://query1.finance.yahoo.com.
func New(baseURL string, client *remote.Client) *Provider {
	return &Provider{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Provider) Name() string { return Name }

// ValidSymbol reports whether symbol can be sent to Yahoo.
func ValidSymbol(symbol string) bool { return symbolPattern.MatchString(symbol) }

// FetchQuote returns the latest price of symbol.
func (p *Provider) FetchQuote(ctx context.Context, symbol string) (xmf.Quote, error) {
	r, err := p.chart(ctx, symbol, "1d")
	if err != nil {
		return xmf.Quote{}, err
	}
	m := r.Meta
	if m.RegularMarketPrice == nil || m.Currency == "" {
		return xmf.Quote{}, fmt.Errorf("%w: %s: chart without price or currency", xmf.ErrSchemaChanged, symbol)
	}
	cur, unit, err := majorCurrency(m.Currency)
	if err != nil {
		return xmf.Quote{}, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	q := xmf.Quote{
		ID:       symbol,
		Name:     m.Name(),
		Price:    decimal.NewFromFloat(*m.RegularMarketPrice).Div(unit),
		Currency: cur,
		Time:     time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	switch {
	case m.ChartPreviousClose != nil:
		q.PreviousClose = decimal.NewFromFloat(*m.ChartPreviousClose).Div(unit)
	case m.PreviousClose != nil:
		q.PreviousClose = decimal.NewFromFloat(*m.PreviousClose).Div(unit)
	}
	return q, nil
}

// minorUnits maps the codes Yahoo uses for prices quoted in a subunit, like
// pence on the London Stock Exchange, to their ISO currency.
var minorUnits = map[string]string{
	"GBp": "GBP",
	"GBX": "GBP",
	"ZAc": "ZAR",
	"ZAX": "ZAR",
	"ILA": "ILS",
}

var hundred = decimal.NewFromInt(100)

// majorCurrency returns the ISO currency of a chart currency code and the
// number of chart units per unit of that currency.
func majorCurrency(code string) (string, decimal.Decimal, error) {
	if iso, ok := minorUnits[code]; ok {
		return iso, hundred, nil
	}
	if !currencyPattern.MatchString(code) {
		return "", decimal.Zero, fmt.Errorf("%w: currency %q", xmf.ErrSchemaChanged, code)
	}
	return code, decimal.NewFromInt(1), nil
}

// FetchHistory returns the daily closes of symbol covering span.
func (p *Provider) FetchHistory(ctx context.Context, symbol string, span date.Span) (*date.History[float64], error) {
	r, err := p.chart(ctx, symbol, Range(span))
	if err != nil {
		return nil, err
	}
	h, err := ParseChart(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return h, nil
}

// FetchMetadata returns the name and category of symbol. Yahoo does not
// publish expense ratios.
func (p *Provider) FetchMetadata(ctx context.Context, symbol string) (xmf.Metadata, error) {
	r, err := p.chart(ctx, symbol, "1d")
	if err != nil {
		return xmf.Metadata{}, err
	}
	return xmf.Metadata{Name: r.Meta.Name(), Category: r.Meta.Category()}, nil
}

// FetchRate returns the amount of 'to' for one unit of 'from' using the
// {FROM}{TO}=X currency symbol.
func (p *Provider) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if !currencyPattern.MatchString(from) || !currencyPattern.MatchString(to) {
		return decimal.Zero, fmt.Errorf("%w: currency pair %q/%q", xmf.ErrInvalidIdentifier, from, to)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	symbol := from + to + "=X"
	r, err := p.chart(ctx, symbol, "1d")
	if err != nil {
		return decimal.Zero, err
	}
	if r.Meta.RegularMarketPrice == nil || *r.Meta.RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s: no positive rate", xmf.ErrSchemaChanged, symbol)
	}
	return decimal.NewFromFloat(*r.Meta.RegularMarketPrice), nil
}

// Range returns the chart range covering span with one extra step, so that
// the price on the span start can be backward filled.
func Range(span date.Span) string {
	switch span {
	case date.OneDay:
		return "5d"
	case date.OneWeek:
		return "1mo"
	case date.OneMonth:
		return "3mo"
	case date.ThreeMonths:
		return "6mo"
	case date.SixMonths:
		return "1y"
	case date.OneYear:
		return "2y"
	case date.ThreeYears:
		return "5y"
	case date.FiveYears:
		return "10y"
	default:
		return "max"
	}
}

// chart queries the chart of symbol over rng and returns its only result.
func (p *Provider) chart(ctx context.Context, symbol, rng string) (Result, error) {
	if !ValidSymbol(symbol) {
		return Result{}, fmt.Errorf("%w: symbol %q", xmf.ErrInvalidIdentifier, symbol)
	}
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", p.base, url.PathEscape(symbol), url.QueryEscape(rng))

	var resp Response
	if err := p.client.GetJSON(ctx, addr, &resp); err != nil {
		return Result{}, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return Result{}, fmt.Errorf("yahoo %s: %w: %s", symbol, xmf.ErrNotFound, e.Description)
		}
		return Result{}, fmt.Errorf("yahoo %s: %w: %s: %s", symbol, xmf.ErrSchemaChanged, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return Result{}, fmt.Errorf("yahoo %s: %w: empty chart", symbol, xmf.ErrNotFound)
	}
	return resp.Chart.Result[0], nil
}

// ParseChart converts the chart closes into a daily history.
//
// Timestamps are shifted to the exchange time zone before being truncated to
// a date. Null closes are skipped.
func ParseChart(r Result) (*date.History[float64], error) {
	if len(r.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no price data returned", xmf.ErrNotFound)
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no close prices returned", xmf.ErrSchemaChanged)
	}
	closes := r.Indicators.Quote[0].Close
	if len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("%w: %d closes for %d timestamps", xmf.ErrSchemaChanged, len(closes), len(r.Timestamp))
	}
	h := new(date.History[float64])
	for i, ts := range r.Timestamp {
		if closes[i] == nil {
			continue
		}
		h.Append(date.FromUnix(ts+r.Meta.GMTOffset), *closes[i])
	}
	return h, nil
}
