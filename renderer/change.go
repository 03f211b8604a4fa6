package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/date"
	md "github.com/nao1215/markdown"
)

// ChangeMarkdown renders the period changes of a portfolio, one column per span.
func ChangeMarkdown(r xmf.ChangeReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	var n notes

	doc.H1(fmt.Sprintf("Changes of %s", r.Portfolio))
	if len(r.Instruments) == 0 {
		doc.PlainText("No priced holdings.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: alignment(1 + len(r.Spans)),
		Header:    append([]string{"Holding", "Weight"}, spanHeaders(r.Spans)...),
	}
	for _, in := range r.Instruments {
		row := []string{in.Name, weight(in.Weight)}
		if !in.OK() {
			row[1] = n.na(in.ID(), in.Err)
		}
		for _, o := range in.Changes {
			row = append(row, n.signed(in.ID(), o))
		}
		table.Rows = append(table.Rows, row)
	}
	total := []string{md.Bold("Total"), ""}
	for _, o := range r.Total {
		total = append(total, md.Bold(n.signed(r.Portfolio, o)))
	}
	table.Rows = append(table.Rows, total)
	doc.Table(table)

	n.write(doc)
	return doc.String()
}

func spanHeaders(spans []date.Span) []string {
	headers := make([]string, len(spans))
	for i, s := range spans {
		headers[i] = s.String()
	}
	return headers
}
