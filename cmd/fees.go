package cmd

import (
	"context"
	"flag"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/renderer"
	"github.com/google/subcommands"
)

// feesCmd holds the flags for the 'fees' subcommand.
type feesCmd struct {
	portfolio string
}

func (*feesCmd) Name() string     { return "fees" }
func (*feesCmd) Synopsis() string { return "display expense ratios" }
func (*feesCmd) Usage() string {
	return `xmf fees [-p <portfolio>]

  Displays the expense ratio of each fund, the value weighted expense ratio of
  the portfolio and its yearly cost.
`
}

func (c *feesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to report on. Defaults to all of them.")
}

func (c *feesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return report(ctx, c.portfolio, func(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) (string, bool) {
		v := value(ctx, e, p)
		return renderer.FeesMarkdown(e.Fees(ctx, v)), v.AllFailed()
	})
}
