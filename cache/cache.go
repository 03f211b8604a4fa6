// Package cache persists provider responses so that unreliable, rate-limited
// remote services are called at most once per key while an entry is fresh.
//
// Entries are JSON envelopes stored in a Store under a string key. Freshness
// is decided by the caller supplied TTL against the entry's fetch time, so the
// same store can hold quotes, series and metadata with different lifetimes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/etnz/xmf/logger"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMiss is returned by a Store when it has no entry for the key.
	ErrMiss = errors.New("cache miss")

	// ErrCorrupt marks an entry that cannot be read back. Such entries are misses.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// version of the envelope. Entries with another version are misses.
const version = 1

// maxSkew is how far in the future a fetch time may be. Later entries were
// written by a clock ahead of ours and are misses.
const maxSkew = time.Minute

// Key identifies a logical provider request.
type Key struct {
	Provider string // provider name, e.g. "yahoo"
	Kind     Kind   // data kind, it also selects the TTL
	ID       string // symbol, isin or currency pair
	Params   string // request parameters such as the history span, may be empty
}

func (k Key) String() string {
	s := k.Provider + "/" + string(k.Kind) + "/" + k.ID
	if k.Params != "" {
		s += "?" + k.Params
	}
	return s
}

// entry is the persisted envelope.
type entry struct {
	Version   int             `json:"v"`
	Key       string          `json:"key"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Stats counts cache activity since the Cache was created.
type Stats struct {
	Hits    int64 // lookups served from the store
	Misses  int64 // lookups that needed a fetch
	Fetches int64 // fetch functions actually invoked
}

// Cache fronts a Store with TTL checks and in-flight request coalescing.
type Cache struct {
	store Store
	group singleflight.Group
	now   func() time.Time

	hits, misses, fetches atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, tests use it to make entries expire.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New returns a Cache persisting into store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Fetches: c.fetches.Load()}
}

// Clear removes every entry from the underlying store.
func (c *Cache) Clear(ctx context.Context) error { return c.store.Clear(ctx) }

// Close releases the underlying store.
func (c *Cache) Close() error { return c.store.Close() }

// GetOrFetch returns the value cached under key if it is younger than ttl,
// otherwise it calls fetch, persists its result and returns it.
//
// When forceRefresh is true the freshness check is skipped. A failed fetch
// returns its error and leaves the stored entry untouched. Concurrent calls for
// the same key and the same forceRefresh share a single fetch; a forced call
// never joins a flight that may have been served from the store.
func GetOrFetch[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, forceRefresh bool, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()
	log := logger.FromContext(ctx)

	if !forceRefresh {
		if e, ok := c.read(ctx, k); ok && c.fresh(e, ttl) {
			v, err := decode[T](e.Payload)
			if err == nil {
				c.hits.Add(1)
				log.Debug("cache hit", "key", k, "age", c.now().Sub(e.FetchedAt).Round(time.Second))
				return v, nil
			}
			log.Debug("cache entry ignored", "key", k, "err", fmt.Errorf("%w: %v", ErrCorrupt, err))
		}
	}

	flight := k
	if forceRefresh {
		flight += "#refresh"
	}
	ch := c.group.DoChan(flight, func() (any, error) {
		prev, hasPrev := c.read(ctx, k)
		if !forceRefresh && hasPrev && c.fresh(prev, ttl) {
			// Another flight stored it since our first look.
			if _, err := decode[T](prev.Payload); err == nil {
				c.hits.Add(1)
				return []byte(prev.Payload), nil
			}
		}
		c.misses.Add(1)
		c.fetches.Add(1)
		log.Debug("cache fetch", "key", k, "refresh", forceRefresh)

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cannot encode %s: %w", k, err)
		}
		at := c.now()
		if hasPrev && !at.After(prev.FetchedAt) {
			at = prev.FetchedAt.Add(time.Nanosecond)
		}
		if err := c.write(ctx, k, payload, at); err != nil {
			log.Warn("cache write failed (ignored)", "key", k, "err", err)
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, err := decode[T](res.Val.([]byte))
		if err != nil {
			return zero, fmt.Errorf("cannot decode %s: %w", k, err)
		}
		return v, nil
	}
}

func decode[T any](payload []byte) (T, error) {
	var v T
	err := json.Unmarshal(payload, &v)
	return v, err
}

func (c *Cache) fresh(e entry, ttl time.Duration) bool { return c.now().Sub(e.FetchedAt) < ttl }

// read returns the entry stored under k. Any failure is a miss.
func (c *Cache) read(ctx context.Context, k string) (entry, bool) {
	log := logger.FromContext(ctx)
	data, err := c.store.Get(ctx, k)
	if errors.Is(err, ErrMiss) {
		return entry{}, false
	}
	if err != nil {
		log.Warn("cache read failed", "key", k, "err", err)
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Debug("cache entry ignored", "key", k, "err", fmt.Errorf("%w: %v", ErrCorrupt, err))
		return entry{}, false
	}
	if e.Version != version || e.Key != k {
		log.Debug("cache entry ignored", "key", k, "err", fmt.Errorf("%w: version %d key %q", ErrCorrupt, e.Version, e.Key))
		return entry{}, false
	}
	if e.FetchedAt.Sub(c.now()) > maxSkew {
		log.Debug("cache entry ignored", "key", k, "err", fmt.Errorf("%w: fetched in the future at %v", ErrCorrupt, e.FetchedAt))
		return entry{}, false
	}
	return e, true
}

func (c *Cache) write(ctx context.Context, k string, payload []byte, at time.Time) error {
	data, err := json.Marshal(entry{Version: version, Key: k, FetchedAt: at, Payload: payload})
	if err != nil {
		return err
	}
	return c.store.Put(ctx, k, data, at)
}

// FetchedAt returns when the entry under key was stored, for reporting data age.
func (c *Cache) FetchedAt(ctx context.Context, key Key) (time.Time, bool) {
	e, ok := c.read(ctx, key.String())
	return e.FetchedAt, ok
}
