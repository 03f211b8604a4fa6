package cmd

import (
	"context"
	"flag"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/renderer"
	"github.com/google/subcommands"
)

// allocCmd holds the flags for the 'alloc' subcommand.
type allocCmd struct {
	portfolio string
}

func (*allocCmd) Name() string     { return "alloc" }
func (*allocCmd) Synopsis() string { return "display the allocation by category" }
func (*allocCmd) Usage() string {
	return `xmf alloc [-p <portfolio>]

  Displays the share of the portfolio value in each category. A holding's
  category is the one set in the configuration, else the one reported by its
  provider, else Uncategorized.
`
}

func (c *allocCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to report on. Defaults to all of them.")
}

func (c *allocCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return report(ctx, c.portfolio, func(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) (string, bool) {
		v := value(ctx, e, p)
		return renderer.AllocationMarkdown(e.Allocate(ctx, v)), v.AllFailed()
	})
}
