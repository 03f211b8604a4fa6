// Package renderer turns xmf reports into markdown documents.
//
// Undefined figures are rendered "N/A" with a numbered note giving the reason,
// never as zero.
package renderer

import (
	"fmt"
	"slices"

	"github.com/etnz/xmf"
	md "github.com/nao1215/markdown"
)

// NA is the cell of an undefined figure.
const NA = "N/A"

// notes numbers the reasons of N/A cells, one note per distinct reason.
type notes struct {
	lines []string
}

// na returns an N/A cell referencing the note "subject: reason".
func (n *notes) na(subject string, err error) string {
	line := fmt.Sprintf("%s: %s", subject, xmf.Label(err))
	i := slices.Index(n.lines, line)
	if i < 0 {
		n.lines = append(n.lines, line)
		i = len(n.lines) - 1
	}
	return fmt.Sprintf("%s [%d]", NA, i+1)
}

// write appends the notes section, if any.
func (n *notes) write(doc *md.Markdown) {
	if len(n.lines) == 0 {
		return
	}
	doc.H2("Notes")
	doc.OrderedList(n.lines...)
}

// signed formats a relative change, or N/A.
func (n *notes) signed(subject string, o xmf.Outcome) string {
	if !o.OK() {
		return n.na(subject, o.Err)
	}
	return xmf.PercentOf(o.Value).SignedString()
}

// weight formats a holding weight.
func weight(w float64) string { return xmf.PercentOf(w).String() }

// alignment returns a left aligned first column followed by n right aligned ones.
func alignment(n int) []md.TableAlignment {
	a := []md.TableAlignment{md.AlignLeft}
	for range n {
		a = append(a, md.AlignRight)
	}
	return a
}
