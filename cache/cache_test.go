package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// counter returns a fetch function counting its invocations.
func counter(n *atomic.Int64, price float64) func(context.Context) (quote, error) {
	return func(context.Context) (quote, error) {
		n.Add(1)
		return quote{Symbol: "AAPL", Price: price}, nil
	}
}

var aapl = Key{Provider: "yahoo", Kind: KindQuote, ID: "AAPL"}

func TestGetOrFetchTTL(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := New(NewMemoryStore(), WithClock(clk.Now))
	var fetches atomic.Int64

	got, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 150))
	require.NoError(t, err)
	assert.Equal(t, quote{"AAPL", 150}, got)

	clk.Advance(59 * time.Minute)
	got, err = GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 151))
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Price, "fresh entry must be served from the store")
	assert.Equal(t, int64(1), fetches.Load())

	clk.Advance(time.Minute)
	got, err = GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 152))
	require.NoError(t, err)
	assert.Equal(t, 152.0, got.Price)
	assert.Equal(t, int64(2), fetches.Load(), "expired entry must be fetched exactly once more")

	_, err = GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 153))
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Fetches)
}

func TestGetOrFetchForceRefresh(t *testing.T) {
	ctx := context.Background()
	clk := newClock() // frozen: fetched_at must still increase
	c := New(NewMemoryStore(), WithClock(clk.Now))
	var fetches atomic.Int64

	var last time.Time
	for i := range 3 {
		_, err := GetOrFetch(ctx, c, aapl, time.Hour, true, counter(&fetches, float64(100+i)))
		require.NoError(t, err)
		at, ok := c.FetchedAt(ctx, aapl)
		require.True(t, ok)
		assert.True(t, at.After(last), "fetched_at %v must be after %v", at, last)
		last = at
	}
	assert.Equal(t, int64(3), fetches.Load())

	got, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 0))
	require.NoError(t, err)
	assert.Equal(t, 102.0, got.Price)
}

func TestGetOrFetchFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := New(NewMemoryStore(), WithClock(clk.Now))
	var fetches atomic.Int64

	_, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 150))
	require.NoError(t, err)
	before, _ := c.FetchedAt(ctx, aapl)

	clk.Advance(2 * time.Hour)
	boom := errors.New("service unavailable")
	_, err = GetOrFetch(ctx, c, aapl, time.Hour, false, func(context.Context) (quote, error) {
		return quote{}, boom
	})
	assert.ErrorIs(t, err, boom)

	after, _ := c.FetchedAt(ctx, aapl)
	assert.Equal(t, before, after, "a failed fetch must not touch the entry")

	got, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 160))
	require.NoError(t, err, "the next call retries")
	assert.Equal(t, 160.0, got.Price)
}

func TestGetOrFetchCoalesces(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	var fetches atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (quote, error) {
		fetches.Add(1)
		<-release
		return quote{Symbol: "AAPL", Price: 150}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]quote, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := GetOrFetch(ctx, c, aapl, time.Hour, false, fetch)
			assert.NoError(t, err)
			results[i] = q
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
	for _, q := range results {
		assert.Equal(t, 150.0, q.Price)
	}
}

func TestGetOrFetchCoalescesRefresh(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	var fetches atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (quote, error) {
		if fetches.Add(1) == 1 {
			close(started)
		}
		<-release
		return quote{Symbol: "AAPL", Price: 150}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := GetOrFetch(ctx, c, aapl, time.Hour, true, fetch)
		assert.NoError(t, err)
	}()
	<-started
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := GetOrFetch(ctx, c, aapl, time.Hour, true, fetch)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int64(1), fetches.Load(), "concurrent refreshes of one key share the fetch")

	// A new process run starts with a new Cache on the same store.
	c2 := New(c.store)
	_, err := GetOrFetch(ctx, c2, aapl, time.Hour, true, counter(&fetches, 151))
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestGetOrFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(NewMemoryStore())
	_, err := GetOrFetch(ctx, c, aapl, time.Hour, false, func(ctx context.Context) (quote, error) {
		cancel()
		<-ctx.Done()
		return quote{}, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := c.FetchedAt(context.Background(), aapl)
	assert.False(t, ok, "a cancelled fetch must not write")
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	c := New(store)
	var fetches atomic.Int64

	for _, garbage := range []string{
		"not json",
		`{"v":99,"key":"yahoo/quote/AAPL","fetched_at":"2999-01-01T00:00:00Z","payload":{}}`,
		`{"v":1,"key":"other","fetched_at":"2999-01-01T00:00:00Z","payload":{}}`,
		`{"v":1,"key":"yahoo/quote/AAPL","fetched_at":"2999-01-01T00:00:00Z","payload":"a string"}`,
	} {
		require.NoError(t, os.WriteFile(store.path(aapl.String()), []byte(garbage), 0o644))
		got, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 150))
		require.NoError(t, err, "corrupt entry %q", garbage)
		assert.Equal(t, 150.0, got.Price)
	}
	assert.Equal(t, int64(4), fetches.Load())
}

func TestFutureEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := NewMemoryStore()
	c := New(store, WithClock(clk.Now))
	var fetches atomic.Int64

	future := clk.Now().Add(24 * time.Hour).Format(time.RFC3339)
	envelope := `{"v":1,"key":"yahoo/quote/AAPL","fetched_at":"` + future + `","payload":{"symbol":"AAPL","price":99}}`
	require.NoError(t, store.Put(ctx, aapl.String(), []byte(envelope), clk.Now()))

	got, err := GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 150))
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Price)
	assert.Equal(t, int64(1), fetches.Load())

	// The rewritten entry is fresh again.
	got, err = GetOrFetch(ctx, c, aapl, time.Hour, false, counter(&fetches, 160))
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Price)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestForceRefreshDoesNotJoinPlainLookup(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	var fetches atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := GetOrFetch(ctx, c, aapl, time.Hour, false, func(context.Context) (quote, error) {
			fetches.Add(1)
			close(started)
			<-release
			return quote{Symbol: "AAPL", Price: 150}, nil
		})
		assert.NoError(t, err)
	}()
	<-started

	got, err := GetOrFetch(ctx, c, aapl, time.Hour, true, counter(&fetches, 151))
	require.NoError(t, err)
	assert.Equal(t, 151.0, got.Price, "a forced lookup fetches on its own")
	close(release)
	wg.Wait()
	assert.Equal(t, int64(2), fetches.Load())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "yahoo/quote/AAPL", aapl.String())
	k := Key{Provider: "amfi", Kind: KindHistory, ID: "INF879O01027", Params: "1Y"}
	assert.Equal(t, "amfi/history/INF879O01027?1Y", k.String())
}

func TestPolicy(t *testing.T) {
	p, err := DefaultPolicy().Override(map[string]time.Duration{"Quote": time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, p.TTL(KindQuote))
	assert.Equal(t, 7*24*time.Hour, p.TTL(KindMetadata))
	assert.Equal(t, 12*time.Hour, Policy{}.TTL(KindHistory))

	_, err = DefaultPolicy().Override(map[string]time.Duration{"dividends": time.Hour})
	assert.Error(t, err)
	_, err = DefaultPolicy().Override(map[string]time.Duration{"rate": -time.Hour})
	assert.Error(t, err)
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)

	now := time.Now()
	require.NoError(t, s.Put(ctx, "a", []byte("one"), now))
	require.NoError(t, s.Put(ctx, "b", []byte("two"), now))
	require.NoError(t, s.Put(ctx, "a", []byte("three"), now))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "three", string(got))

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	require.NoError(t, s.Close())
}

func TestDiskStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(filepath.Join(dir, "nested", "cache"))
	require.NoError(t, err)
	testStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	testStore(t, s)
}

func TestDiskStorePutCancelled(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Put(ctx, "a", []byte("x"), time.Now()))
	_, err = s.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrMiss)
}
