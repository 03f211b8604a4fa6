package yahoo

// Response is the body of the Yahoo Finance chart API.
//
// Chart.Result holds one element for a known symbol. Closes are nullable:
// Yahoo reports a null close for sessions without trades.
type Response struct {
	Chart struct {
		Result []Result    `json:"result"`
		Error  *ChartError `json:"error"`
	} `json:"chart"`
}

// Result is the chart of one symbol.
type Result struct {
	Meta       Meta    `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Meta describes the symbol and carries its latest price.
type Meta struct {
	Currency           string   `json:"currency"`
	Symbol             string   `json:"symbol"`
	InstrumentType     string   `json:"instrumentType"`
	LongName           string   `json:"longName"`
	ShortName          string   `json:"shortName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	PreviousClose      *float64 `json:"previousClose"`
	GMTOffset          int64    `json:"gmtoffset"` // seconds east of UTC of the exchange
}

// ChartError is the error object Yahoo returns for unknown symbols.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Name returns the most descriptive name available.
func (m Meta) Name() string {
	if m.LongName != "" {
		return m.LongName
	}
	return m.ShortName
}

// Category maps the instrument type to an allocation category, empty when unknown.
func (m Meta) Category() string {
	switch m.InstrumentType {
	case "EQUITY", "ETF":
		return "Equity"
	case "MUTUALFUND":
		return "Mutual Fund"
	case "CURRENCY":
		return "Cash"
	case "CRYPTOCURRENCY":
		return "Crypto"
	default:
		return ""
	}
}
