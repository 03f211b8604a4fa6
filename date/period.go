package date

import (
	"fmt"
	"strings"
)

// Period is a calendar stride, used to step rolling windows.
type Period int

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

func ParsePeriod(p string) (Period, error) {
	p = strings.ToLower(p)
	switch p {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", p)
	}
}

// Next returns the date one period after d.
func (p Period) Next(d Date) Date { return p.Step(d, 1) }

// Step returns the date k periods after d. Steps are counted from d, not
// chained, so monthly steps from January 31 land on the last day of shorter
// months and return to the 31st.
func (p Period) Step(d Date, k int) Date {
	switch p {
	case Daily:
		return d.Add(k)
	case Weekly:
		return d.Add(7 * k)
	case Monthly:
		return d.AddMonths(k)
	case Quarterly:
		return d.AddMonths(3 * k)
	case Yearly:
		return d.AddYears(k)
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}
