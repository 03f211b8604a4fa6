// Package remote is the HTTP JSON client shared by the price providers.
//
// It throttles requests per client, retries transient failures with an
// exponential backoff and classifies failures into the xmf provider errors.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/logger"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// UserAgent is sent with every request. Yahoo rejects the Go default one.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBody bounds the size of a decoded response.
const maxBody = 32 << 20

// Client performs JSON GET requests.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	retries uint64
	backoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(c *http.Client) Option { return func(r *Client) { r.http = c } }

// WithRate limits requests to perSecond, with bursts of burst requests.
func WithRate(perSecond float64, burst int) Option {
	return func(r *Client) { r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRetries retries transient failures n times, waiting base, 2*base, 4*base...
func WithRetries(n int, base time.Duration) Option {
	return func(r *Client) {
		if n < 0 {
			n = 0
		}
		if base <= 0 {
			base = time.Millisecond
		}
		r.retries, r.backoff = uint64(n), base
	}
}

// WithTimeout sets the timeout of each request.
func WithTimeout(d time.Duration) Option { return func(r *Client) { r.http.Timeout = d } }

// New returns a client allowing 5 requests per second and 2 retries by default.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(5, 5),
		retries: 2,
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches addr and decodes its JSON body into data.
//
// Errors wrap xmf.ErrNotFound for 404, xmf.ErrRateLimited for 429,
// xmf.ErrUnavailable for 5xx and network failures, and xmf.ErrSchemaChanged
// for bodies that do not decode. Only the transient ones are retried.
func (c *Client) GetJSON(ctx context.Context, addr string, data any) error {
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := c.get(ctx, addr, data)
		if err != nil && xmf.Retryable(err) && ctx.Err() == nil {
			logger.FromContext(ctx).Debug("retrying request", "url", addr, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) get(ctx context.Context, addr string, data any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: GET %s: %v", xmf.ErrUnavailable, addr, err)
	}
	defer resp.Body.Close()
	logger.FromContext(ctx).Debug("http", "method", req.Method, "url", addr, "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if err := Classify(resp.StatusCode); err != nil {
		return fmt.Errorf("%w: GET %s: %s", err, addr, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: GET %s: reading body: %v", xmf.ErrUnavailable, addr, err)
	}
	if err := json.Unmarshal(body, data); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) && len(body) == 0 {
			return fmt.Errorf("%w: GET %s: empty body", xmf.ErrUnavailable, addr)
		}
		return fmt.Errorf("%w: GET %s: %v", xmf.ErrSchemaChanged, addr, err)
	}
	return nil
}

// Classify maps an HTTP status code to a provider error, nil for 2xx.
func Classify(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return xmf.ErrNotFound
	case status == http.StatusTooManyRequests:
		return xmf.ErrRateLimited
	case status >= 500:
		return xmf.ErrUnavailable
	default:
		return fmt.Errorf("%w: unexpected status %d", xmf.ErrSchemaChanged, status)
	}
}
