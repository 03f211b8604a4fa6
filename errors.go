package xmf

import (
	"errors"

	"github.com/etnz/xmf/cache"
)

// Provider failures. Providers wrap one of them so that callers can classify
// errors with errors.Is.
var (
	// ErrInvalidIdentifier indicates a malformed symbol or isin, detected before any network call.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound indicates that the provider does not know the identifier.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates that the provider throttled the request. It is transient.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a network or server failure. It is transient.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrSchemaChanged indicates a response that does not have the expected shape.
	ErrSchemaChanged = errors.New("unexpected response schema")

	// ErrNoProvider indicates an investment kind with no registered provider.
	ErrNoProvider = errors.New("no provider")
)

// ErrCacheCorrupt marks unreadable cache entries. The cache treats them as misses.
var ErrCacheCorrupt = cache.ErrCorrupt

// Computation failures, reported per instrument.
var (
	// ErrInsufficientHistory indicates that a series does not cover the requested span.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrNoData indicates that a figure is undefined, for instance no price before the period start.
	ErrNoData = errors.New("no data")

	// ErrDivisionGuard indicates a portfolio whose total value is zero. Weights are all zero.
	ErrDivisionGuard = errors.New("zero total valuation")
)

// Retryable reports whether err is transient and may succeed after a backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// Label returns a short description of err for report footnotes.
func Label(err error) string {
	for _, known := range []error{
		ErrInvalidIdentifier, ErrNotFound, ErrRateLimited, ErrUnavailable, ErrSchemaChanged,
		ErrNoProvider, ErrInsufficientHistory, ErrNoData, ErrDivisionGuard,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "error"
}
