package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/xmf"
	md "github.com/nao1215/markdown"
)

// ReturnsMarkdown renders the annualized returns of a portfolio and, when
// requested, the rolling returns of each holding.
func ReturnsMarkdown(r xmf.ReturnsReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	var n notes

	doc.H1(fmt.Sprintf("Returns of %s", r.Portfolio))
	if len(r.Instruments) == 0 {
		doc.PlainText("No priced holdings.")
		return doc.String()
	}

	if len(r.Spans) > 0 {
		doc.H2("Annualized Returns")
		table := md.TableSet{
			Alignment: alignment(len(r.Spans)),
			Header:    append([]string{"Holding"}, spanHeaders(r.Spans)...),
		}
		for _, in := range r.Instruments {
			row := []string{in.Name}
			for _, o := range in.CAGR {
				row = append(row, n.signed(in.ID(), o))
			}
			table.Rows = append(table.Rows, row)
		}
		total := []string{md.Bold("Total")}
		for _, o := range r.Total {
			total = append(total, md.Bold(n.signed(r.Portfolio, o)))
		}
		table.Rows = append(table.Rows, total)
		doc.Table(table)
	}

	if r.Rolling != nil {
		doc.H2(fmt.Sprintf("Rolling %s Returns", r.Rolling.Window))
		doc.PlainText(fmt.Sprintf("Windows start %s from the first price.", r.Rolling.Stride))
		table := md.TableSet{
			Alignment: alignment(6),
			Header:    []string{"Holding", "Windows", "Min", "Mean", "Max", "Positive", "Last"},
		}
		for _, in := range r.Instruments {
			s := in.Rolling
			switch {
			case in.HistoryErr != nil:
				na := n.na(in.ID(), in.HistoryErr)
				table.Rows = append(table.Rows, []string{in.Name, na, na, na, na, na, na})
			case s == nil || s.Count == 0:
				na := n.na(in.ID(), xmf.ErrInsufficientHistory)
				table.Rows = append(table.Rows, []string{in.Name, "0", na, na, na, na, na})
			default:
				table.Rows = append(table.Rows, []string{
					in.Name,
					fmt.Sprint(s.Count),
					xmf.PercentOf(s.Min).SignedString(),
					xmf.PercentOf(s.Mean).SignedString(),
					xmf.PercentOf(s.Max).SignedString(),
					weight(float64(s.Positive) / float64(s.Count)),
					fmt.Sprintf("%s (%s)", xmf.PercentOf(s.Last.CAGR).SignedString(), s.Last.End),
				})
			}
		}
		doc.Table(table)
	}

	n.write(doc)
	return doc.String()
}
