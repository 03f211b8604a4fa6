// Package xmf values investment portfolios and computes their performance
// from cached provider prices.
//
// The main parts are:
//   - Configuration: portfolios of stocks, mutual funds and fixed deposits,
//     loaded from YAML with environment overrides (LoadConfig).
//   - Market: the Source of quotes, price histories, metadata and currency
//     rates. Each lookup goes through a TTL cache in front of the Provider
//     registered for the investment kind, so a key is fetched at most once
//     while it is fresh.
//   - Engine: a stateless set of analytics over a Source. Value converts each
//     holding to the portfolio currency; Changes, Returns, Allocate and Fees
//     build reports on top of a Valuation.
//
// Failures are per holding. A holding that cannot be valued, or a figure that
// cannot be computed, carries its error in the report and is left out of the
// portfolio totals; it is never counted as zero.
package xmf
