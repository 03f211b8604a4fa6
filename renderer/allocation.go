package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/etnz/xmf"
	md "github.com/nao1215/markdown"
)

// AllocationMarkdown renders the split of a portfolio by category.
func AllocationMarkdown(a xmf.Allocation) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	var n notes

	doc.H1(fmt.Sprintf("Allocation of %s", a.Portfolio))
	doc.PlainText(fmt.Sprintf("Total Value: %s", a.Total))

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft},
		Header:    []string{"Category", "Value", "Share", "Holdings"},
	}
	for _, b := range a.Buckets {
		share := weight(b.Share)
		if a.ZeroTotal {
			share = n.na(a.Portfolio, xmf.ErrDivisionGuard)
		}
		table.Rows = append(table.Rows, []string{b.Category, b.Value.String(), share, strings.Join(b.Holdings, ", ")})
	}
	for _, h := range a.Skipped {
		table.Rows = append(table.Rows, []string{n.na(h.ID(), h.Err), NA, NA, h.Name})
	}
	doc.Table(table)

	n.write(doc)
	return doc.String()
}
