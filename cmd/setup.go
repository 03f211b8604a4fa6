package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/etnz/xmf/docs"
	"github.com/etnz/xmf/logger"
	"github.com/google/subcommands"
)

// setupCmd holds the flags for the 'setup' subcommand.
type setupCmd struct {
	force bool
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "create an example configuration" }
func (*setupCmd) Usage() string {
	return `xmf setup [-force]

  Writes an example configuration where the other commands look for it, by
  default config.yaml in the user configuration directory. An existing file is
  kept unless -force is set.
`
}

func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "Overwrite an existing configuration.")
}

func (c *setupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, err := configFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := writeConfig(path, docs.ExampleConfig, c.force); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.FromContext(ctx).Info("created configuration", "path", path)
	fmt.Printf("Configuration written to %s\n", path)
	return subcommands.ExitSuccess
}

// writeConfig writes data to path, creating its directory. It refuses to
// replace an existing file unless force is set.
func writeConfig(path string, data []byte, force bool) error {
	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		return fmt.Errorf("configuration already exists at %s, use -force to overwrite it", path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
