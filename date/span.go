package date

import (
	"fmt"
	"strings"
)

// Span is a look-back range used to query history and compute changes.
type Span int

const (
	OneDay Span = iota
	OneWeek
	OneMonth
	ThreeMonths
	SixMonths
	OneYear
	ThreeYears
	FiveYears
	Max
)

var spanNames = [...]string{"1D", "1W", "1M", "3M", "6M", "1Y", "3Y", "5Y", "MAX"}

// Spans returns every span, shortest first.
func Spans() []Span {
	return []Span{OneDay, OneWeek, OneMonth, ThreeMonths, SixMonths, OneYear, ThreeYears, FiveYears, Max}
}

func (s Span) String() string {
	if s < OneDay || s > Max {
		return fmt.Sprintf("Span(%d)", int(s))
	}
	return spanNames[s]
}

// ParseSpan parses a span name like "1Y" or "max", case insensitive.
func ParseSpan(str string) (Span, error) {
	str = strings.ToUpper(strings.TrimSpace(str))
	for i, name := range spanNames {
		if name == str {
			return Span(i), nil
		}
	}
	return OneDay, fmt.Errorf("unknown span %q want one of %s", str, strings.Join(spanNames[:], ", "))
}

// ParseSpans parses a comma separated list of spans.
func ParseSpans(list string) ([]Span, error) {
	var spans []Span
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		s, err := ParseSpan(item)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("empty span list %q", list)
	}
	return spans, nil
}

// Start returns the date one span before end.
// Max has no start date and returns false.
func (s Span) Start(end Date) (Date, bool) {
	switch s {
	case OneDay:
		return end.Add(-1), true
	case OneWeek:
		return end.Add(-7), true
	case OneMonth:
		return end.AddMonths(-1), true
	case ThreeMonths:
		return end.AddMonths(-3), true
	case SixMonths:
		return end.AddMonths(-6), true
	case OneYear:
		return end.AddYears(-1), true
	case ThreeYears:
		return end.AddYears(-3), true
	case FiveYears:
		return end.AddYears(-5), true
	default:
		return Date{}, false
	}
}

// Longest returns the longest span of the list, or OneDay for an empty list.
func Longest(spans ...Span) Span {
	longest := OneDay
	for _, s := range spans {
		if s > longest {
			longest = s
		}
	}
	return longest
}

// End returns the date one span after start.
// Max has no end date and returns false.
func (s Span) End(start Date) (Date, bool) {
	switch s {
	case OneDay:
		return start.Add(1), true
	case OneWeek:
		return start.Add(7), true
	case OneMonth:
		return start.AddMonths(1), true
	case ThreeMonths:
		return start.AddMonths(3), true
	case SixMonths:
		return start.AddMonths(6), true
	case OneYear:
		return start.AddYears(1), true
	case ThreeYears:
		return start.AddYears(3), true
	case FiveYears:
		return start.AddYears(5), true
	default:
		return Date{}, false
	}
}
