package xmf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Default provider endpoints.
const (
	DefaultYahooURL = "https://query1.finance.yahoo.com"
	DefaultAMFIURL  = "https://mf.captnemo.in"
)

// Config is the user configuration: the portfolios and how to reach the providers.
type Config struct {
	Currency   string
	DataPath   string // cache directory, empty for the default one
	Providers  Providers
	Cache      CacheConfig
	Network    NetworkConfig
	Portfolios []Portfolio
}

// Providers holds the per provider settings.
type Providers struct {
	Yahoo ProviderConfig `yaml:"yahoo"`
	AMFI  ProviderConfig `yaml:"amfi"`
}

// ProviderConfig overrides a provider endpoint.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig selects the cache store and its TTLs.
type CacheConfig struct {
	Backend string                   `yaml:"backend"` // disk, sqlite or memory
	TTL     map[string]time.Duration `yaml:"ttl"`     // data kind to TTL
}

// NetworkConfig tunes provider calls.
type NetworkConfig struct {
	Workers int           `yaml:"workers"` // concurrent provider calls
	Retries int           `yaml:"retries"` // retries of transient failures
	Rate    float64       `yaml:"rate"`    // requests per second and per provider
	Timeout time.Duration `yaml:"timeout"` // per request
}

// Cache backends.
const (
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment variables overriding the configuration file.
const (
	EnvCurrency = "XMF_CURRENCY"
	EnvDataPath = "XMF_DATA_PATH"
	EnvYahooURL = "XMF_YAHOO_BASE_URL"
	EnvAMFIURL  = "XMF_AMFI_BASE_URL"
)

type fileConfig struct {
	Currency   string          `yaml:"currency"`
	DataPath   string          `yaml:"data_path"`
	Providers  Providers       `yaml:"providers"`
	Cache      CacheConfig     `yaml:"cache"`
	Network    NetworkConfig   `yaml:"network"`
	Portfolios []filePortfolio `yaml:"portfolios"`
}

type filePortfolio struct {
	Name        string           `yaml:"name"`
	Investments []fileInvestment `yaml:"investments"`
}

// fileInvestment is any investment, the identifying field tells which.
type fileInvestment struct {
	Symbol   string `yaml:"symbol"`
	ISIN     string `yaml:"isin"`
	Name     string `yaml:"name"`
	Units    amount `yaml:"units"`
	Value    amount `yaml:"value"`
	Currency string `yaml:"currency"`
	Category string `yaml:"category"`
}

// amount decodes YAML numbers without going through float64.
type amount struct {
	decimal.Decimal
	set bool
}

func (a *amount) UnmarshalYAML(n *yaml.Node) error {
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", n.Line, n.Value)
	}
	a.Decimal, a.set = d, true
	return nil
}

func (f fileInvestment) investment() (Investment, error) {
	n := 0
	for _, id := range []string{f.Symbol, f.ISIN, f.Name} {
		if id != "" {
			n++
		}
	}
	if n != 1 {
		return nil, errors.New("exactly one of symbol, isin or name is required")
	}
	switch {
	case f.Symbol != "":
		if !f.Units.set || f.Value.set {
			return nil, fmt.Errorf("stock %s: units required, value not allowed", f.Symbol)
		}
		return Stock{Symbol: strings.ToUpper(f.Symbol), Units: f.Units.Decimal, Category: f.Category}, nil
	case f.ISIN != "":
		if !f.Units.set || f.Value.set {
			return nil, fmt.Errorf("mutual fund %s: units required, value not allowed", f.ISIN)
		}
		return MutualFund{ISIN: strings.ToUpper(f.ISIN), Units: f.Units.Decimal, Category: f.Category}, nil
	default:
		if !f.Value.set || f.Units.set {
			return nil, fmt.Errorf("fixed deposit %s: value required, units not allowed", f.Name)
		}
		return FixedDeposit{Name: f.Name, Value: f.Value.Decimal, Currency: strings.ToUpper(f.Currency), Category: f.Category}, nil
	}
}

// LoadConfig reads the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes and validates a YAML configuration.
// Unknown fields are errors, so are invalid portfolios.
func DecodeConfig(r io.Reader) (*Config, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Currency:  strings.ToUpper(raw.Currency),
		DataPath:  raw.DataPath,
		Providers: raw.Providers,
		Cache:     raw.Cache,
		Network:   raw.Network,
	}
	var errs []error
	for i, rp := range raw.Portfolios {
		p := Portfolio{Name: rp.Name}
		for j, ri := range rp.Investments {
			inv, err := ri.investment()
			if err != nil {
				errs = append(errs, fmt.Errorf("portfolio #%d %q: investment #%d: %w", i+1, rp.Name, j+1, err))
				continue
			}
			p.Investments = append(p.Investments, inv)
		}
		cfg.Portfolios = append(cfg.Portfolios, p)
	}
	cfg.setDefaults()
	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults fills unset fields and propagates the global currency.
func (c *Config) setDefaults() {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.Providers.Yahoo.BaseURL == "" {
		c.Providers.Yahoo.BaseURL = DefaultYahooURL
	}
	if c.Providers.AMFI.BaseURL == "" {
		c.Providers.AMFI.BaseURL = DefaultAMFIURL
	}
	c.Providers.Yahoo.BaseURL = strings.TrimRight(c.Providers.Yahoo.BaseURL, "/")
	c.Providers.AMFI.BaseURL = strings.TrimRight(c.Providers.AMFI.BaseURL, "/")
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendDisk
	}
	if c.Network.Workers <= 0 {
		c.Network.Workers = DefaultWorkers
	}
	if c.Network.Retries < 0 {
		c.Network.Retries = 0
	}
	if c.Network.Rate <= 0 {
		c.Network.Rate = 5
	}
	if c.Network.Timeout <= 0 {
		c.Network.Timeout = 30 * time.Second
	}
	for i := range c.Portfolios {
		c.Portfolios[i].Currency = c.Currency
	}
}

// ApplyEnv overrides the configuration with the XMF_* variables set in getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvCurrency); v != "" {
		c.Currency = strings.ToUpper(v)
	}
	if v := getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}
	if v := getenv(EnvYahooURL); v != "" {
		c.Providers.Yahoo.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv(EnvAMFIURL); v != "" {
		c.Providers.AMFI.BaseURL = strings.TrimRight(v, "/")
	}
	for i := range c.Portfolios {
		c.Portfolios[i].Currency = c.Currency
	}
	return c.Validate()
}

// Validate reports every problem of the configuration.
func (c *Config) Validate() error {
	var errs []error
	if !ValidCurrency(c.Currency) {
		errs = append(errs, fmt.Errorf("unknown currency %q", c.Currency))
	}
	switch c.Cache.Backend {
	case BackendDisk, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q want %s, %s or %s", c.Cache.Backend, BackendDisk, BackendSQLite, BackendMemory))
	}
	if len(c.Portfolios) == 0 {
		errs = append(errs, errors.New("no portfolio defined"))
	}
	names := make(map[string]bool)
	for _, p := range c.Portfolios {
		if names[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate portfolio name %q", p.Name))
		}
		names[p.Name] = true
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Portfolio returns the portfolio named name.
func (c *Config) Portfolio(name string) (Portfolio, bool) {
	for _, p := range c.Portfolios {
		if p.Name == name {
			return p, true
		}
	}
	return Portfolio{}, false
}
