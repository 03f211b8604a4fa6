// Command xmf reports on investment portfolios described in a YAML file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"

	"github.com/etnz/xmf/cmd"
	"github.com/etnz/xmf/date"
	"github.com/etnz/xmf/docs"
	"github.com/etnz/xmf/logger"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	completion().Complete("xmf")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()

	level := os.Getenv(logger.EnvLevel)
	if *cmd.Verbose {
		level = "debug"
	}
	l := logger.Init(os.Stderr, level)

	if name := flag.Arg(0); name != "" && !cmd.IsCommand(name) && !builtin(name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}

	os.Exit(int(run(logger.ToContext(context.Background(), l), commander)))
}

func run(ctx context.Context, commander *subcommands.Commander) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *cmd.Timeout)
	defer cancel()
	return commander.Execute(ctx)
}

func builtin(name string) bool {
	return name == "help" || name == "flags" || name == "commands"
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	var spans predict.Set
	for _, s := range date.Spans() {
		spans = append(spans, s.String())
	}
	topics, _ := docs.GetAllTopics()
	strides := predict.Set{"daily", "weekly", "monthly", "quarterly", "yearly"}
	report := func(extra map[string]complete.Predictor) *complete.Command {
		flags := map[string]complete.Predictor{"p": predict.Something}
		for k, v := range extra {
			flags[k] = v
		}
		return &complete.Command{Flags: flags}
	}
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"refresh":     predict.Nothing,
			"config-name": predict.Something,
			"config-path": predict.Files("*.y*ml"),
			"verbose":     predict.Nothing,
			"timeout":     predict.Something,
			"cache":       predict.Set{"disk", "sqlite", "memory"},
		},
		Sub: map[string]*complete.Command{
			"summary": report(nil),
			"change":  report(map[string]complete.Predictor{"spans": spans}),
			"returns": report(map[string]complete.Predictor{"spans": spans, "rolling": spans, "stride": strides}),
			"fees":    report(nil),
			"alloc":   report(nil),
			"setup": {Flags: map[string]complete.Predictor{
				"force": predict.Nothing,
			}},
			"clear-cache": {},
			"topic":       {Args: predict.Set(topics)},
		},
	}
}
