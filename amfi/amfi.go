// Package amfi quotes Indian mutual funds by ISIN.
//
// NAVs come from the AMFI mirror at mf.captnemo.in, in INR. Fund metadata
// comes from the Kuvera endpoint of the same server.
package amfi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/xmf"
	"github.com/etnz/xmf/date"
	"github.com/etnz/xmf/logger"
	"github.com/etnz/xmf/remote"
	"github.com/shopspring/decimal"
)

// Name identifies the provider in cache keys.
const Name = "amfi"

// Currency of every NAV.
const Currency = "INR"

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidISIN reports whether isin is well formed.
func ValidISIN(isin string) bool { return isinPattern.MatchString(isin) }

// Provider implements xmf.Provider for mutual funds.
type Provider struct {
	base   string
	client *remote.Client
}

// New returns a Provider querying baseURL, like https://mf.captnemo.in.
func New(baseURL string, client *remote.Client) *Provider {
	return &Provider{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Provider) Name() string { return Name }

// navResponse is the body of GET /nav/{isin}.
type navResponse struct {
	NAV     *float64              `json:"nav"`
	Date    date.Date             `json:"date"`
	Name    string                `json:"name"`
	History date.History[float64] `json:"historical_nav"`
}

// nav fetches the NAV document of isin. The latest NAV is merged into the history.
func (p *Provider) nav(ctx context.Context, isin string) (navResponse, error) {
	if !ValidISIN(isin) {
		return navResponse{}, fmt.Errorf("%w: isin %q", xmf.ErrInvalidIdentifier, isin)
	}
	var resp navResponse
	if err := p.client.GetJSON(ctx, p.base+"/nav/"+isin, &resp); err != nil {
		return navResponse{}, fmt.Errorf("amfi %s: %w", isin, err)
	}
	if resp.NAV == nil || resp.Date.IsZero() {
		return navResponse{}, fmt.Errorf("amfi %s: %w: nav or date missing", isin, xmf.ErrSchemaChanged)
	}
	resp.History.Append(resp.Date, *resp.NAV)
	return resp, nil
}

// FetchQuote returns the latest NAV of isin. The previous close is the NAV
// published before it, when the history has one.
func (p *Provider) FetchQuote(ctx context.Context, isin string) (xmf.Quote, error) {
	resp, err := p.nav(ctx, isin)
	if err != nil {
		return xmf.Quote{}, err
	}
	q := xmf.Quote{
		ID:       isin,
		Name:     resp.Name,
		Price:    decimal.NewFromFloat(*resp.NAV),
		Currency: Currency,
		Time:     resp.Date.Time(),
	}
	if stale(resp.Date, time.Now()) {
		logger.FromContext(ctx).Warn("stale nav", "isin", isin, "date", resp.Date)
	}
	if _, prev, ok := resp.History.PointAsOf(resp.Date.Add(-1)); ok {
		q.PreviousClose = decimal.NewFromFloat(prev)
	}
	return q, nil
}

// FetchHistory returns the NAVs of isin since the span start, plus the one
// before it.
func (p *Provider) FetchHistory(ctx context.Context, isin string, span date.Span) (*date.History[float64], error) {
	resp, err := p.nav(ctx, isin)
	if err != nil {
		return nil, err
	}
	end, _ := resp.History.Latest()
	start, bounded := span.Start(end)
	if !bounded {
		return &resp.History, nil
	}
	return resp.History.Since(start), nil
}

// FetchMetadata returns the fund type and expense ratio published by Kuvera.
// An expense ratio that does not parse is reported as unknown.
func (p *Provider) FetchMetadata(ctx context.Context, isin string) (xmf.Metadata, error) {
	if !ValidISIN(isin) {
		return xmf.Metadata{}, fmt.Errorf("%w: isin %q", xmf.ErrInvalidIdentifier, isin)
	}
	var doc any
	if err := p.client.GetJSON(ctx, p.base+"/kuvera/"+isin, &doc); err != nil {
		return xmf.Metadata{}, fmt.Errorf("kuvera %s: %w", isin, err)
	}
	funds, ok := doc.([]any)
	if !ok {
		return xmf.Metadata{}, fmt.Errorf("kuvera %s: %w: not a fund list", isin, xmf.ErrSchemaChanged)
	}
	if len(funds) == 0 {
		return xmf.Metadata{}, fmt.Errorf("kuvera %s: %w: empty fund list", isin, xmf.ErrNotFound)
	}

	m := xmf.Metadata{
		Name:     text(doc, "$[0].name"),
		Category: text(doc, "$[0].fund_type"),
	}
	if m.Category == "" {
		m.Category = text(doc, "$[0].fund_category")
	}
	if ratio, err := expenseRatio(doc); err != nil {
		logger.FromContext(ctx).Debug("unknown expense ratio", "isin", isin, "err", err)
	} else {
		m.ExpenseRatio = &ratio
	}
	return m, nil
}

// text returns the string at path in doc, empty when absent.
func text(doc any, path string) string {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// expenseRatio reads the expense ratio, published as a percent string like "0.33".
func expenseRatio(doc any) (xmf.Percent, error) {
	const path = "$[0].expense_ratio"
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case float64:
		return xmf.Percent(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return xmf.Percent(f), nil
	default:
		return 0, fmt.Errorf("%s: unexpected %T", path, v)
	}
}

// stale reports whether a NAV published on day is older than a week, which
// usually means the fund was merged or closed.
func stale(day date.Date, now time.Time) bool {
	return date.FromTime(now).Sub(day) > 7
}
