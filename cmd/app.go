// Package cmd implements the xmf command line: one subcommand per report.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/xmf"
	"github.com/etnz/xmf/amfi"
	"github.com/etnz/xmf/cache"
	"github.com/etnz/xmf/logger"
	"github.com/etnz/xmf/remote"
	"github.com/etnz/xmf/yahoo"
	"github.com/google/subcommands"
)

// Commands lists every xmf subcommand.
var Commands = []subcommands.Command{
	&summaryCmd{},
	&changeCmd{},
	&returnsCmd{},
	&feesCmd{},
	&allocCmd{},
	&setupCmd{},
	&clearCacheCmd{},
	&topicCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var refresh = flag.Bool("refresh", false, "Fetch every price again, ignoring the cached ones.")
var configName = flag.String("config-name", "", "Use NAME.yaml (or NAME.yml) from the configuration directory.")
var configPath = flag.String("config-path", "", "Path to the configuration file.")
var cacheBackend = flag.String("cache", "", "Cache backend, one of disk, sqlite or memory. Overrides the configuration.")

// Verbose enables debug logging.
var Verbose = flag.Bool("verbose", false, "Log debug messages to stderr.")

// Timeout bounds the whole command.
var Timeout = flag.Duration("timeout", 2*time.Minute, "Maximum duration of the command.")

// ConfigDir returns the directory holding the configuration files.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xmf"), nil
}

// resolveConfig returns the configuration file selected by path or name, in dir.
func resolveConfig(dir, path, name string) (string, error) {
	switch {
	case path != "" && name != "":
		return "", errors.New("-config-path and -config-name cannot be used together")
	case path != "":
		return expandHome(path)
	case name != "":
		for _, ext := range []string{".yaml", ".yml"} {
			p := filepath.Join(dir, name+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		return "", fmt.Errorf("no configuration %q in %s, want %s.yaml or %s.yml", name, dir, name, name)
	default:
		return filepath.Join(dir, "config.yaml"), nil
	}
}

// configFile returns the configuration file selected by the global flags.
func configFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return resolveConfig(dir, *configPath, *configName)
}

// expandHome replaces a leading ~ by the user home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// loadConfig loads the configuration selected by the flags, with the
// environment and -cache overrides applied.
func loadConfig() (*xmf.Config, error) {
	path, err := configFile()
	if err != nil {
		return nil, err
	}
	cfg, err := xmf.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no configuration at %s, run 'xmf setup' to create one", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if *cacheBackend != "" {
		cfg.Cache.Backend = *cacheBackend
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// dataPath returns the cache directory of cfg.
func dataPath(cfg *xmf.Config) (string, error) {
	if cfg.DataPath != "" {
		return expandHome(cfg.DataPath)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xmf"), nil
}

// openStore opens the cache store configured in cfg.
func openStore(ctx context.Context, cfg *xmf.Config) (cache.Store, error) {
	if cfg.Cache.Backend == xmf.BackendMemory {
		return cache.NewMemoryStore(), nil
	}
	dir, err := dataPath(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend == xmf.BackendSQLite {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create cache directory: %w", err)
		}
		s, err := cache.OpenSQLite(ctx, filepath.Join(dir, "cache.db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := cache.NewDiskStore(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newMarket wires the providers of cfg behind c.
func newMarket(cfg *xmf.Config, c *cache.Cache, refresh bool) (*xmf.Market, error) {
	policy, err := cache.DefaultPolicy().Override(cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	// one client per host, each with its own rate limit.
	client := func() *remote.Client {
		return remote.New(
			remote.WithRate(cfg.Network.Rate, max(1, int(cfg.Network.Rate))),
			remote.WithRetries(cfg.Network.Retries, 500*time.Millisecond),
			remote.WithTimeout(cfg.Network.Timeout),
		)
	}
	y := yahoo.New(cfg.Providers.Yahoo.BaseURL, client())
	m := xmf.NewMarket(c, policy, refresh)
	m.Register(xmf.KindStock, y)
	m.Register(xmf.KindMutualFund, amfi.New(cfg.Providers.AMFI.BaseURL, client()))
	m.RegisterRates(y)
	return m, nil
}

// session is what report commands share: the configuration and an engine
// over the cached market.
type session struct {
	cfg    *xmf.Config
	cache  *cache.Cache
	engine *xmf.Engine
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := cache.New(store)
	m, err := newMarket(cfg, c, *refresh)
	if err != nil {
		c.Close()
		return nil, err
	}
	return &session{cfg: cfg, cache: c, engine: xmf.NewEngine(m, cfg.Network.Workers)}, nil
}

func (s *session) Close(ctx context.Context) {
	st := s.cache.Stats()
	logger.FromContext(ctx).Debug("cache usage", "hits", st.Hits, "misses", st.Misses, "fetches", st.Fetches)
	if err := s.cache.Close(); err != nil {
		logger.FromContext(ctx).Warn("cannot close cache", "err", err)
	}
}

// portfolios returns the portfolio named name, or all of them when name is empty.
func (s *session) portfolios(name string) ([]xmf.Portfolio, error) {
	if name == "" {
		return s.cfg.Portfolios, nil
	}
	p, ok := s.cfg.Portfolio(name)
	if !ok {
		names := make([]string, len(s.cfg.Portfolios))
		for i, p := range s.cfg.Portfolios {
			names[i] = p.Name
		}
		return nil, fmt.Errorf("unknown portfolio %q want one of %s", name, strings.Join(names, ", "))
	}
	return []xmf.Portfolio{p}, nil
}

// report runs render on each selected portfolio and prints the concatenated
// markdown. It fails only when every portfolio reports a total failure.
func report(ctx context.Context, portfolio string, render func(context.Context, *xmf.Engine, xmf.Portfolio) (md string, failed bool)) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close(ctx)

	ps, err := s.portfolios(portfolio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var b strings.Builder
	failed := len(ps) > 0
	for _, p := range ps {
		md, f := render(ctx, s.engine, p)
		b.WriteString(md)
		b.WriteString("\n")
		failed = failed && f
	}
	printMarkdown(b.String())

	if failed {
		fmt.Fprintln(os.Stderr, "Error: no instrument could be valued")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// value values p and logs its warnings.
func value(ctx context.Context, e *xmf.Engine, p xmf.Portfolio) xmf.Valuation {
	v := e.Value(ctx, p)
	if err := v.Warning(); err != nil {
		logger.FromContext(ctx).Warn("degenerate valuation", "err", err)
	}
	for _, h := range v.Holdings {
		if !h.OK() {
			logger.FromContext(ctx).Debug("holding not valued", "portfolio", p.Name, "id", h.ID(), "err", h.Err)
		}
	}
	return v
}
