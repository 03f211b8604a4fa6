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

const defaultReturnsSpans = "1Y,3Y,5Y"

// returnsCmd holds the flags for the 'returns' subcommand.
type returnsCmd struct {
	portfolio string
	spans     string
	rolling   string
	stride    string
}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "display annualized returns" }
func (*returnsCmd) Usage() string {
	return `xmf returns [-p <portfolio>] [-spans 1Y,3Y] [-rolling 1Y [-stride monthly]]

  Displays the compound annual growth rate (CAGR) of each holding over each
  span, and the value weighted CAGR of the portfolio.

  With -rolling, also displays statistics of the returns over every window of
  that span in the whole history, windows starting every -stride.
`
}

func (c *returnsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to report on. Defaults to all of them.")
	f.StringVar(&c.spans, "spans", defaultReturnsSpans, "Comma separated list of spans.")
	f.StringVar(&c.rolling, "rolling", "", "Window of the rolling returns, like 1Y. Empty for none.")
	f.StringVar(&c.stride, "stride", "monthly", "Step between two rolling windows: daily, weekly, monthly, quarterly or yearly.")
}

// rollingSpec parses the rolling flags. It returns nil when -rolling is empty.
func (c *returnsCmd) rollingSpec() (*xmf.RollingSpec, error) {
	if c.rolling == "" {
		return nil, nil
	}
	window, err := date.ParseSpan(c.rolling)
	if err != nil {
		return nil, err
	}
	if window == date.Max {
		return nil, fmt.Errorf("rolling window cannot be %s", date.Max)
	}
	stride, err := date.ParsePeriod(c.stride)
	if err != nil {
		return nil, err
	}
	return &xmf.RollingSpec{Window: window, Stride: stride}, nil
}

func (c *returnsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	spans, err := date.ParseSpans(c.spans)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -spans %q: %v\n", c.spans, err)
		return subcommands.ExitUsageError
	}
	rolling, err := c.rollingSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing rolling window: %v\n", err)
		return subcommands.ExitUsageError
	}
	if len(spans) == 0 && rolling == nil {
		fmt.Fprintln(os.Stderr, "Error: -spans is empty and -rolling is not set")
		return subcommands.ExitUsageError
	}
	return report(ctx, c.portfolio, func(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) (string, bool) {
		v := value(ctx, e, p)
		r := e.Returns(ctx, v, spans, rolling)
		return renderer.ReturnsMarkdown(r), v.AllFailed() || r.AllFailed()
	})
}
