package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/xmf/cache"
	"github.com/google/subcommands"
)

type clearCacheCmd struct{}

func (*clearCacheCmd) Name() string     { return "clear-cache" }
func (*clearCacheCmd) Synopsis() string { return "remove every cached price" }
func (*clearCacheCmd) Usage() string {
	return `xmf clear-cache

  Removes every entry of the configured cache. The next commands fetch
  everything again.
`
}

func (*clearCacheCmd) SetFlags(*flag.FlagSet) {}

func (*clearCacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		return subcommands.ExitFailure
	}
	c := cache.New(store)
	defer c.Close()
	if err := c.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Cleared the %s cache\n", cfg.Cache.Backend)
	return subcommands.ExitSuccess
}
