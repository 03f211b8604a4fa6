package cmd

import (
	"context"
	"flag"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	portfolio string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the value of each holding" }
func (*summaryCmd) Usage() string {
	return `xmf summary [-p <portfolio>]

  Displays the value of every holding at the latest known price, converted
  to the portfolio currency, and its weight in the portfolio.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to report on. Defaults to all of them.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return report(ctx, c.portfolio, func(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) (string, bool) {
		v := value(ctx, e, p)
		return renderer.SummaryMarkdown(v), v.AllFailed()
	})
}
