package xmf

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"
)

// Uncategorized is the allocation bucket of holdings with no known category.
const Uncategorized = "Uncategorized"

// Allocation categories recognized from provider metadata.
const (
	Equity = "Equity"
	Debt   = "Debt"
	Hybrid = "Hybrid"
)

// NormalizeCategory maps provider and user category names to a canonical name.
// Unknown names are kept, capitalized. The empty name stays empty.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "equity"), lower == "stock", lower == "stocks":
		return Equity
	case strings.Contains(lower, "debt"), strings.Contains(lower, "income"), strings.Contains(lower, "bond"):
		return Debt
	case strings.Contains(lower, "hybrid"), strings.Contains(lower, "balanced"), strings.Contains(lower, "dynamic"):
		return Hybrid
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Bucket is the part of a portfolio in one category.
type Bucket struct {
	Category string
	Value    Money
	Share    float64  // Value / total, 0 when the total is zero
	Holdings []string // names of the holdings in this bucket
}

// Allocation splits the valued holdings of a portfolio by category.
type Allocation struct {
	Portfolio string
	Total     Money
	ZeroTotal bool
	Buckets   []Bucket  // largest first
	Skipped   []Holding // holdings without a value
}

// Allocate groups the valued holdings of v by category.
//
// A holding's category is its configured category, else the category of its
// metadata, else Uncategorized.
func (e *Engine) Allocate(ctx context.Context, v Valuation) Allocation {
	a := Allocation{Portfolio: v.Portfolio, Total: v.Total, ZeroTotal: v.ZeroTotal}
	categories := make([]string, len(v.Holdings))
	e.each(ctx, len(v.Holdings), func(ctx context.Context, i int) {
		h := v.Holdings[i]
		if !h.OK() {
			return
		}
		categories[i] = e.category(ctx, h.Investment)
	})

	index := make(map[string]int)
	for i, h := range v.Holdings {
		if !h.OK() {
			a.Skipped = append(a.Skipped, h)
			continue
		}
		c := categories[i]
		j, ok := index[c]
		if !ok {
			j = len(a.Buckets)
			index[c] = j
			a.Buckets = append(a.Buckets, Bucket{Category: c, Value: M(0, v.Currency)})
		}
		b := &a.Buckets[j]
		b.Value = b.Value.Add(h.Converted)
		b.Holdings = append(b.Holdings, h.Name)
	}
	for i := range a.Buckets {
		a.Buckets[i].Share = a.Buckets[i].Value.Ratio(v.Total)
	}
	slices.SortStableFunc(a.Buckets, func(x, y Bucket) int {
		if c := y.Value.Decimal().Cmp(x.Value.Decimal()); c != 0 {
			return c
		}
		return cmp.Compare(x.Category, y.Category)
	})
	return a
}

// category resolves the allocation category of one investment.
func (e *Engine) category(ctx context.Context, inv Investment) string {
	if c := NormalizeCategory(inv.category()); c != "" {
		return c
	}
	if !priced(inv) {
		return Uncategorized
	}
	m, err := e.src.Metadata(ctx, inv)
	if err != nil {
		return Uncategorized
	}
	if c := NormalizeCategory(m.Category); c != "" {
		return c
	}
	return Uncategorized
}
