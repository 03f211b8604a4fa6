package xmf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the kind of an Investment.
type Kind int

const (
	KindStock Kind = iota
	KindMutualFund
	KindFixedDeposit
)

func (k Kind) String() string {
	switch k {
	case KindStock:
		return "stock"
	case KindMutualFund:
		return "mutual fund"
	case KindFixedDeposit:
		return "fixed deposit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Investment is one line of a Portfolio. It is one of Stock, MutualFund or FixedDeposit.
type Investment interface {
	// ID is the symbol, the isin or the deposit name.
	ID() string
	Kind() Kind

	category() string
	validate() error
}

// Stock is a listed security quoted by symbol, like AAPL or VWRL.AS.
type Stock struct {
	Symbol   string
	Units    decimal.Decimal
	Category string // optional allocation category
}

// MutualFund is a fund quoted by its ISIN.
type MutualFund struct {
	ISIN     string
	Units    decimal.Decimal
	Category string // optional allocation category
}

// FixedDeposit is a static amount maintained by hand.
type FixedDeposit struct {
	Name     string
	Value    decimal.Decimal
	Currency string // defaults to the portfolio currency
	Category string // optional allocation category
}

func (s Stock) ID() string        { return s.Symbol }
func (m MutualFund) ID() string   { return m.ISIN }
func (d FixedDeposit) ID() string { return d.Name }

func (Stock) Kind() Kind        { return KindStock }
func (MutualFund) Kind() Kind   { return KindMutualFund }
func (FixedDeposit) Kind() Kind { return KindFixedDeposit }

func (s Stock) category() string        { return s.Category }
func (m MutualFund) category() string   { return m.Category }
func (d FixedDeposit) category() string { return d.Category }

func (s Stock) validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("stock: %w: empty symbol", ErrInvalidIdentifier)
	}
	if !s.Units.IsPositive() {
		return fmt.Errorf("stock %s: units must be positive, got %v", s.Symbol, s.Units)
	}
	return nil
}

func (m MutualFund) validate() error {
	if strings.TrimSpace(m.ISIN) == "" {
		return fmt.Errorf("mutual fund: %w: empty isin", ErrInvalidIdentifier)
	}
	if !m.Units.IsPositive() {
		return fmt.Errorf("mutual fund %s: units must be positive, got %v", m.ISIN, m.Units)
	}
	return nil
}

func (d FixedDeposit) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("fixed deposit: empty name")
	}
	if d.Value.IsNegative() {
		return fmt.Errorf("fixed deposit %s: value must not be negative, got %v", d.Name, d.Value)
	}
	if d.Currency != "" && !ValidCurrency(d.Currency) {
		return fmt.Errorf("fixed deposit %s: unknown currency %q", d.Name, d.Currency)
	}
	return nil
}

// Portfolio is a named, ordered list of investments valued in one currency.
type Portfolio struct {
	Name        string
	Investments []Investment
	Currency    string
}

// Validate reports every problem of the portfolio.
func (p Portfolio) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("portfolio with empty name"))
	}
	if !ValidCurrency(p.Currency) {
		errs = append(errs, fmt.Errorf("portfolio %q: unknown currency %q", p.Name, p.Currency))
	}
	for i, inv := range p.Investments {
		if inv == nil {
			errs = append(errs, fmt.Errorf("portfolio %q: investment #%d is empty", p.Name, i+1))
			continue
		}
		if err := inv.validate(); err != nil {
			errs = append(errs, fmt.Errorf("portfolio %q: investment #%d: %w", p.Name, i+1, err))
		}
	}
	return errors.Join(errs...)
}

// units returns the units held, zero for deposits.
func units(inv Investment) decimal.Decimal {
	switch inv := inv.(type) {
	case Stock:
		return inv.Units
	case MutualFund:
		return inv.Units
	default:
		return decimal.Zero
	}
}

// priced reports whether inv is quoted by a provider.
func priced(inv Investment) bool { return inv.Kind() != KindFixedDeposit }
