package date

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"sort"
)

// History stores a chronological series of values, each associated with a specific date.
// It ensures that dates are unique and the series is always sorted.
type History[T float32 | float64 | string] struct {
	days   []Date
	values []T
}

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero value.
func (h *History[T]) Latest() (day Date, value T) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, *new(T)
	}
	return h.days[last], h.values[last]
}

// First returns the earliest date and value in the history.
// If the history is empty, it returns zero value.
func (h *History[T]) First() (day Date, value T) {
	if len(h.days) == 0 {
		return Date{}, *new(T)
	}
	return h.days[0], h.values[0]
}

// Len returns the number of items in the history.
func (h *History[T]) Len() int { return len(h.days) }

// chronological is a private implementation to make this history chronologically sorted.
type chronological[T float32 | float64 | string] struct{ *History[T] }

func (s chronological[T]) Less(i, j int) bool { return s.days[i].Before(s.days[j]) }

func (s chronological[T]) Swap(i, j int) {
	s.days[i], s.days[j] = s.days[j], s.days[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

// Append adds a point to the history.
//
// Existing value at that date are overwritten.
func (h *History[T]) Append(on Date, q T) *History[T] {
	if n := len(h.days); n == 0 || on.After(h.days[n-1]) {
		// Providers return ascending points, keep that path cheap.
		h.days, h.values = append(h.days, on), append(h.values, q)
		return h
	}
	if i := slices.Index(h.days, on); i >= 0 {
		// Replace: the last data has higher priority.
		h.values[i] = q
		return h
	}
	h.days, h.values = append(h.days, on), append(h.values, q)
	sort.Sort(chronological[T]{h})
	return h
}

// Values returns an iterator over all date/value pairs in the history, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Get returns the value at 'day' and true or zero value and false.
func (h *History[T]) Get(day Date) (T, bool) {
	var value T
	i := slices.Index(h.days, day)
	if i >= 0 {
		return h.values[i], true
	}
	return value, false
}

// ValueAsOf returns the value on a given day, or the most recent value before it.
// It returns the value and true if found, otherwise it returns the zero value and false.
func (h *History[T]) ValueAsOf(day Date) (T, bool) {
	_, v, ok := h.PointAsOf(day)
	return v, ok
}

// PointAsOf is like ValueAsOf but also returns the date of the point actually used.
func (h *History[T]) PointAsOf(day Date) (Date, T, bool) {
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	// i is where day would be inserted, the point before it is the backward fill.
	if i == 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.days[i-1], h.values[i-1], true
}

// Since returns a copy of h restricted to the points on or after day,
// plus the latest point before day so that day can still be backward filled.
func (h *History[T]) Since(day Date) *History[T] {
	i, found := h.search(day)
	if !found && i > 0 {
		i--
	}
	return &History[T]{
		days:   slices.Clone(h.days[i:]),
		values: slices.Clone(h.values[i:]),
	}
}

func (h *History[T]) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, func(d, t Date) int {
		if d.After(t) {
			return 1
		}
		if d.Before(t) {
			return -1
		}
		return 0
	})
}

// MarshalJSON encodes the history as an array of [date, value] pairs.
func (h *History[T]) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(h.days))
	for i, on := range h.days {
		pairs[i] = [2]any{on, h.values[i]}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes an array of [date, value] pairs, in any order.
func (h *History[T]) UnmarshalJSON(data []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	h.days, h.values = make([]Date, 0, len(pairs)), make([]T, 0, len(pairs))
	for i, p := range pairs {
		var on Date
		var v T
		if err := json.Unmarshal(p[0], &on); err != nil {
			return fmt.Errorf("history point %d: %w", i, err)
		}
		if err := json.Unmarshal(p[1], &v); err != nil {
			return fmt.Errorf("history point %d: %w", i, err)
		}
		h.Append(on, v)
	}
	return nil
}
