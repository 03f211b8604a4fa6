package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/xmf"
	md "github.com/nao1215/markdown"
)

// Unknown is the cell of an expense ratio that no provider reports.
const Unknown = "Unknown"

// FeesMarkdown renders the expense ratios of a portfolio.
func FeesMarkdown(r xmf.FeeReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	var n notes

	doc.H1(fmt.Sprintf("Fees of %s", r.Portfolio))
	if len(r.Funds) == 0 {
		doc.PlainText("No priced holdings.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: alignment(4),
		Header:    []string{"Holding", "Category", "Expense Ratio", "Weight", "Annual Cost"},
	}
	for _, f := range r.Funds {
		category, ratio := f.Category, Unknown
		if f.MetadataErr != nil {
			na := n.na(f.ID(), f.MetadataErr)
			category, ratio = na, na
		} else if f.ExpenseRatio != nil {
			ratio = f.ExpenseRatio.String()
		}
		w, cost := weight(f.Weight), "-"
		if !f.OK() {
			w = n.na(f.ID(), f.Err)
		}
		if f.AnnualCost != nil {
			cost = f.AnnualCost.String()
		}
		table.Rows = append(table.Rows, []string{f.Name, category, ratio, w, cost})
	}
	doc.Table(table)

	if r.Weighted != nil {
		doc.PlainText(fmt.Sprintf("Weighted Expense Ratio: %s", md.Bold(r.Weighted.String())))
	} else {
		doc.PlainText(fmt.Sprintf("Weighted Expense Ratio: %s", Unknown))
	}
	doc.PlainText(fmt.Sprintf("Annual Cost: %s", md.Bold(r.AnnualCost.String())))

	n.write(doc)
	return doc.String()
}
