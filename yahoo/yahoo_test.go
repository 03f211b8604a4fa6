package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/date"
	"github.com/etnz/xmf/remote"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02, 2024-01-03 and 2024-01-04 at 14:30 UTC, New York opening.
const aaplChart = `{
  "chart": {
    "result": [{
      "meta": {
        "currency": "USD",
        "symbol": "AAPL",
        "instrumentType": "EQUITY",
        "longName": "Apple Inc.",
        "shortName": "Apple",
        "regularMarketPrice": 181.91,
        "regularMarketTime": 1704402000,
        "chartPreviousClose": 184.25,
        "gmtoffset": -18000
      },
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {"quote": [{"close": [185.64, null, 181.91]}]}
    }],
    "error": null
  }
}`

const notFoundChart = `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`

func newServer(t *testing.T, body string, seen *atomic.Value) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.Store(r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newProvider(server *httptest.Server) *Provider {
	return New(server.URL, remote.New(remote.WithRetries(0, time.Millisecond)))
}

func TestFetchQuote(t *testing.T) {
	var seen atomic.Value
	p := newProvider(newServer(t, aaplChart, &seen))

	q, err := p.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/AAPL?interval=1d&range=1d", seen.Load())
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, "USD", q.Currency)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("181.91")), "price %v", q.Price)
	assert.True(t, q.PreviousClose.Equal(decimal.RequireFromString("184.25")), "previous close %v", q.PreviousClose)
	assert.Equal(t, int64(1704402000), q.Time.Unix())
}

// quoteChart returns a one day chart quoted in currency.
func quoteChart(currency string, price, previous float64) string {
	return fmt.Sprintf(`{"chart": {"result": [{
  "meta": {"currency": %q, "symbol": "X", "regularMarketPrice": %v, "chartPreviousClose": %v, "regularMarketTime": 1704402000},
  "timestamp": [1704378600],
  "indicators": {"quote": [{"close": [%v]}]}
}], "error": null}}`, currency, price, previous, price)
}

func TestFetchQuoteMinorUnits(t *testing.T) {
	testCases := []struct {
		currency string
		want     string
		price    string
		previous string
	}{
		{"GBp", "GBP", "72.5", "71"},
		{"GBX", "GBP", "72.5", "71"},
		{"ZAc", "ZAR", "72.5", "71"},
		{"ILA", "ILS", "72.5", "71"},
		{"EUR", "EUR", "7250", "7100"},
	}
	for _, tc := range testCases {
		t.Run(tc.currency, func(t *testing.T) {
			p := newProvider(newServer(t, quoteChart(tc.currency, 7250, 7100), nil))
			q, err := p.FetchQuote(context.Background(), "VOD.L")
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.Currency)
			assert.True(t, q.Price.Equal(decimal.RequireFromString(tc.price)), "price %v", q.Price)
			assert.True(t, q.PreviousClose.Equal(decimal.RequireFromString(tc.previous)), "previous close %v", q.PreviousClose)
		})
	}
}

func TestFetchQuoteUnknownCurrencyCode(t *testing.T) {
	p := newProvider(newServer(t, quoteChart("KWf", 100, 100), nil))
	_, err := p.FetchQuote(context.Background(), "X")
	assert.ErrorIs(t, err, xmf.ErrSchemaChanged)
}

func TestFetchHistory(t *testing.T) {
	var seen atomic.Value
	p := newProvider(newServer(t, aaplChart, &seen))

	h, err := p.FetchHistory(context.Background(), "AAPL", date.OneYear)
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/AAPL?interval=1d&range=2y", seen.Load())
	require.Equal(t, 2, h.Len(), "the null close is skipped")
	first, v := h.First()
	assert.Equal(t, date.New(2024, time.January, 2), first)
	assert.Equal(t, 185.64, v)
	last, v := h.Latest()
	assert.Equal(t, date.New(2024, time.January, 4), last)
	assert.Equal(t, 181.91, v)
}

func TestFetchMetadata(t *testing.T) {
	p := newProvider(newServer(t, aaplChart, nil))

	m, err := p.FetchMetadata(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", m.Name)
	assert.Equal(t, "Equity", m.Category)
	assert.Nil(t, m.ExpenseRatio)
}

func TestFetchRate(t *testing.T) {
	var seen atomic.Value
	p := newProvider(newServer(t, `{"chart": {"result": [{"meta": {"currency": "USD", "regularMarketPrice": 1.0952}}]}}`, &seen))

	r, err := p.FetchRate(context.Background(), "eur", "usd")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/EURUSD=X?interval=1d&range=1d", seen.Load())
	assert.True(t, r.Equal(decimal.RequireFromString("1.0952")), "rate %v", r)

	_, err = p.FetchRate(context.Background(), "EURO", "USD")
	assert.ErrorIs(t, err, xmf.ErrInvalidIdentifier)
}

func TestInvalidSymbolIsRejectedOffline(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer server.Close()
	p := newProvider(server)

	for _, symbol := range []string{"", "AA PL", "AAPL/../x", "A?B"} {
		_, err := p.FetchQuote(context.Background(), symbol)
		assert.ErrorIs(t, err, xmf.ErrInvalidIdentifier, "symbol %q", symbol)
	}
	assert.Zero(t, calls.Load())
}

func TestChartErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want error
	}{
		{"chart error", notFoundChart, xmf.ErrNotFound},
		{"empty result", `{"chart": {"result": []}}`, xmf.ErrNotFound},
		{"other chart error", `{"chart": {"error": {"code": "Bad Request", "description": "Invalid range"}}}`, xmf.ErrSchemaChanged},
		{"no price", `{"chart": {"result": [{"meta": {"currency": "USD"}}]}}`, xmf.ErrSchemaChanged},
		{"not a chart", `[]`, xmf.ErrSchemaChanged},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(newServer(t, tc.body, nil))
			_, err := p.FetchQuote(context.Background(), "AAPL")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseChart(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	var r Result
	r.Timestamp = []int64{1704205800, 1704292200}
	_, err := ParseChart(r)
	assert.ErrorIs(t, err, xmf.ErrSchemaChanged, "no quote indicator")

	r.Indicators.Quote = append(r.Indicators.Quote, struct {
		Close []*float64 `json:"close"`
	}{Close: []*float64{price(1)}})
	_, err = ParseChart(r)
	assert.ErrorIs(t, err, xmf.ErrSchemaChanged, "mismatched lengths")

	_, err = ParseChart(Result{})
	assert.ErrorIs(t, err, xmf.ErrNotFound)

	// An Auckland session opens the previous day in UTC.
	r = Result{Timestamp: []int64{1704229200}}
	r.Meta.GMTOffset = 13 * 3600
	r.Indicators.Quote = append(r.Indicators.Quote, struct {
		Close []*float64 `json:"close"`
	}{Close: []*float64{price(3.5)}})
	h, err := ParseChart(r)
	require.NoError(t, err)
	on, _ := h.Latest()
	assert.Equal(t, date.New(2024, time.January, 3), on)
}

func TestRange(t *testing.T) {
	want := map[date.Span]string{
		date.OneDay: "5d", date.OneWeek: "1mo", date.OneMonth: "3mo", date.ThreeMonths: "6mo",
		date.SixMonths: "1y", date.OneYear: "2y", date.ThreeYears: "5y", date.FiveYears: "10y", date.Max: "max",
	}
	for span, r := range want {
		assert.Equal(t, r, Range(span), "span %v", span)
	}
}
