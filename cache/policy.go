package cache

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Kind is the kind of data behind a key.
type Kind string

const (
	KindQuote    Kind = "quote"
	KindHistory  Kind = "history"
	KindMetadata Kind = "metadata"
	KindRate     Kind = "rate"
)

// Policy maps each data kind to the duration its entries stay fresh.
type Policy map[Kind]time.Duration

// DefaultPolicy returns the TTLs used when the configuration sets none.
func DefaultPolicy() Policy {
	return Policy{
		KindQuote:    6 * time.Hour,
		KindRate:     6 * time.Hour,
		KindHistory:  12 * time.Hour,
		KindMetadata: 7 * 24 * time.Hour,
	}
}

// TTL returns the TTL of kind k, falling back to the default policy.
func (p Policy) TTL(k Kind) time.Duration {
	if d, ok := p[k]; ok {
		return d
	}
	return DefaultPolicy()[k]
}

// Override returns a copy of p with the TTLs named in overrides replaced.
// Names are data kinds, unknown names and negative durations are errors.
func (p Policy) Override(overrides map[string]time.Duration) (Policy, error) {
	res := maps.Clone(p)
	if res == nil {
		res = Policy{}
	}
	known := DefaultPolicy()
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		k := Kind(strings.ToLower(name))
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("unknown cache data kind %q", name)
		}
		d := overrides[name]
		if d < 0 {
			return nil, fmt.Errorf("negative ttl %v for %q", d, name)
		}
		res[k] = d
	}
	return res, nil
}
