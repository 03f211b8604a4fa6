package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/xmf"
	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders the holdings of a valuation with their weights.
func SummaryMarkdown(v xmf.Valuation) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	var n notes

	doc.H1(fmt.Sprintf("Portfolio %s", v.Portfolio))
	total := fmt.Sprintf("Total Value: %s", v.Total)
	if v.Partial() {
		total += fmt.Sprintf(" (partial, %d of %d holdings missing)", v.Failed(), len(v.Holdings))
	}
	doc.PlainText(total)

	table := md.TableSet{
		Alignment: alignment(6),
		Header:    []string{"Holding", "Units", "Price", "Day", "Value", "Value " + v.Currency, "Weight"},
	}
	for _, h := range v.Holdings {
		name := h.Name
		if name != h.ID() {
			name = fmt.Sprintf("%s (%s)", h.Name, h.ID())
		}
		if !h.OK() {
			na := n.na(h.ID(), h.Err)
			table.Rows = append(table.Rows, []string{name, na, na, na, na, na, na})
			continue
		}
		units, price, day := "-", "-", "-"
		if h.Investment.Kind() != xmf.KindFixedDeposit {
			units, price = h.Units.String(), h.Price.String()
			day = n.signed(h.ID(), h.DayChange)
		}
		w := weight(h.Weight)
		if v.ZeroTotal {
			w = n.na(v.Portfolio, xmf.ErrDivisionGuard)
		}
		table.Rows = append(table.Rows, []string{name, units, price, day, h.Value.String(), h.Converted.String(), w})
	}
	table.Rows = append(table.Rows, []string{md.Bold("Total"), "", "", "", "", md.Bold(v.Total.String()), ""})
	doc.Table(table)

	n.write(doc)
	return doc.String()
}
