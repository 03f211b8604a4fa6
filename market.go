package xmf

import (
	"context"
	"fmt"
	"sync"

	"github.com/etnz/xmf/cache"
	"github.com/etnz/xmf/date"
	"github.com/shopspring/decimal"
)

// Market is the Source backed by providers and a cache.
//
// Every lookup goes through cache.GetOrFetch with the TTL of its data kind.
// With refresh set, each key is fetched once during the Market lifetime
// regardless of its freshness; later lookups reuse what was fetched.
type Market struct {
	cache     *cache.Cache
	policy    cache.Policy
	refresh   bool
	providers map[Kind]Provider
	rates     RateProvider

	refreshed sync.Map // cache key -> *refreshing
}

// NewMarket returns a Market storing into c with the TTLs of policy.
func NewMarket(c *cache.Cache, policy cache.Policy, refresh bool) *Market {
	return &Market{
		cache:     c,
		policy:    policy,
		refresh:   refresh,
		providers: make(map[Kind]Provider),
	}
}

// Register makes p the provider of investments of kind k.
func (m *Market) Register(k Kind, p Provider) { m.providers[k] = p }

// RegisterRates makes r the currency rate provider.
func (m *Market) RegisterRates(r RateProvider) { m.rates = r }

func (m *Market) provider(inv Investment) (Provider, error) {
	p, ok := m.providers[inv.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w for %s %q", ErrNoProvider, inv.Kind(), inv.ID())
	}
	return p, nil
}

// Quote returns the latest quote of inv.
func (m *Market) Quote(ctx context.Context, inv Investment) (Quote, error) {
	p, err := m.provider(inv)
	if err != nil {
		return Quote{}, err
	}
	key := cache.Key{Provider: p.Name(), Kind: cache.KindQuote, ID: inv.ID()}
	return lookup(ctx, m, key, func(ctx context.Context) (Quote, error) {
		return p.FetchQuote(ctx, inv.ID())
	})
}

// History returns the daily prices of inv covering span.
func (m *Market) History(ctx context.Context, inv Investment, span date.Span) (*date.History[float64], error) {
	p, err := m.provider(inv)
	if err != nil {
		return nil, err
	}
	key := cache.Key{Provider: p.Name(), Kind: cache.KindHistory, ID: inv.ID(), Params: span.String()}
	return lookup(ctx, m, key, func(ctx context.Context) (*date.History[float64], error) {
		return p.FetchHistory(ctx, inv.ID(), span)
	})
}

// Metadata returns the description of inv.
func (m *Market) Metadata(ctx context.Context, inv Investment) (Metadata, error) {
	p, err := m.provider(inv)
	if err != nil {
		return Metadata{}, err
	}
	key := cache.Key{Provider: p.Name(), Kind: cache.KindMetadata, ID: inv.ID()}
	return lookup(ctx, m, key, func(ctx context.Context) (Metadata, error) {
		return p.FetchMetadata(ctx, inv.ID())
	})
}

// Rate returns the price in 'to' of one unit of 'from'.
func (m *Market) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if m.rates == nil {
		return decimal.Zero, fmt.Errorf("%w for currency rate %s/%s", ErrNoProvider, from, to)
	}
	key := cache.Key{Provider: m.rates.Name(), Kind: cache.KindRate, ID: from + to}
	return lookup(ctx, m, key, func(ctx context.Context) (decimal.Decimal, error) {
		return m.rates.FetchRate(ctx, from, to)
	})
}

// refreshing tracks the forced fetch of one key.
type refreshing struct {
	done chan struct{}
	err  error
}

// lookup reads key through the cache. With refresh set, the first lookup of
// a key forces a fetch; concurrent and later lookups wait for it and then
// read the cache normally.
func lookup[T any](ctx context.Context, m *Market, key cache.Key, fetch func(context.Context) (T, error)) (T, error) {
	ttl := m.policy.TTL(key.Kind)
	if m.refresh {
		r, loaded := m.refreshed.LoadOrStore(key.String(), &refreshing{done: make(chan struct{})})
		f := r.(*refreshing)
		if !loaded {
			v, err := cache.GetOrFetch(ctx, m.cache, key, ttl, true, fetch)
			f.err = err
			close(f.done)
			return v, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-f.done:
		}
		if f.err != nil {
			var zero T
			return zero, f.err
		}
	}
	return cache.GetOrFetch(ctx, m.cache, key, ttl, false, fetch)
}
