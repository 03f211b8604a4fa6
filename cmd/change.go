package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/date"
	"github.com/etnz/xmf/renderer"
	"github.com/google/subcommands"
)

const defaultChangeSpans = "1D,1W,1M,1Y,3Y,5Y"

// changeCmd holds the flags for the 'change' subcommand.
type changeCmd struct {
	portfolio string
	spans     string
}

func (*changeCmd) Name() string     { return "change" }
func (*changeCmd) Synopsis() string { return "display price changes over several spans" }
func (*changeCmd) Usage() string {
	return `xmf change [-p <portfolio>] [-spans 1D,1W,1M]

  Displays the relative price change of each holding over each span, and the
  value weighted change of the portfolio.

  Spans are 1D, 1W, 1M, 3M, 6M, 1Y, 3Y, 5Y and MAX.
`
}

func (c *changeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to report on. Defaults to all of them.")
	f.StringVar(&c.spans, "spans", defaultChangeSpans, "Comma separated list of spans.")
}

func (c *changeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	spans, err := date.ParseSpans(c.spans)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -spans %q: %v\n", c.spans, err)
		return subcommands.ExitUsageError
	}
	if len(spans) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -spans is empty")
		return subcommands.ExitUsageError
	}
	return report(ctx, c.portfolio, func(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) (string, bool) {
		v := value(ctx, e, p)
		r := e.Changes(ctx, v, spans)
		return renderer.ChangeMarkdown(r), v.AllFailed() || r.AllFailed()
	})
}
