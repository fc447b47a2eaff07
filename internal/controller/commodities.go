package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/amount"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/journal"
	"github.com/beandash/beandash/internal/state"
)

// Commodity metadata keys.
const (
	MetaLogo  = "logo"
	MetaPrice = "price"
)

// Commodity is a held commodity with its latest price.
type Commodity struct {
	Symbol string `json:"symbol"`
	Units  string `json:"units"`
	Price  string `json:"price,omitempty"` // empty when no price is known
}

// CommoditiesState is the commodities view.
type CommoditiesState struct {
	Status
	Currency    string      `json:"currency"`
	Commodities []Commodity `json:"commodities"`
}

// Commodities lists commodities from bean-query and builds commodity
// declarations.
type Commodities struct {
	runner   beanquery.Runner
	currency string
	store    *state.Store[CommoditiesState]
	now      func() time.Time
	log      *slog.Logger
}

// NewCommodities creates a controller pricing in currency.
func NewCommodities(r beanquery.Runner, currency string, log *slog.Logger) *Commodities {
	if log == nil {
		log = slog.Default()
	}
	return &Commodities{
		runner:   r,
		currency: currency,
		store:    state.NewStore(CommoditiesState{Currency: currency}),
		now:      time.Now,
		log:      log,
	}
}

// Store exposes the view state.
func (c *Commodities) Store() *state.Store[CommoditiesState] {
	return c.store
}

// Load queries holdings and prices.
func (c *Commodities) Load(ctx context.Context) error {
	markLoading(c.store)
	t, err := queryTable(ctx, c.runner, beanquery.CommoditiesQuery(c.currency))
	if err != nil {
		c.log.Error("commodities load failed", "error", err)
		return fail(c.store, err)
	}

	list := make([]Commodity, 0, t.Len())
	for i := range t.Len() {
		sym := t.Get(i, "currency")
		if sym == "" {
			continue
		}
		cm := Commodity{Symbol: sym, Units: t.Get(i, "units")}
		if p := amount.Parse(t.Get(i, "price")); p.Currency != "" {
			cm.Price = p.String()
		} else if p := t.Get(i, "price"); p != "" {
			cm.Price = p + " " + c.currency
		}
		list = append(list, cm)
	}

	succeed(c.store, c.now(), func(s *CommoditiesState) {
		s.Currency = c.currency
		s.Commodities = list
	})
	return nil
}

// FirstDate returns the ledger's earliest dated entry, or the zero time
// when the ledger has none.
func (c *Commodities) FirstDate(ctx context.Context) (time.Time, error) {
	t, err := queryTable(ctx, c.runner, beanquery.FirstDateQuery())
	if err != nil {
		return time.Time{}, err
	}
	if t.Len() == 0 {
		return time.Time{}, nil
	}
	s := strings.TrimSpace(t.Get(0, "first"))
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("first date %q: %w", s, err)
	}
	return d, nil
}

// Declaration validates metadata and renders a commodity directive.
func (c *Commodities) Declaration(date time.Time, symbol, logo, priceSource string) (string, error) {
	meta := map[string]string{}
	var errs []error
	if logo != "" {
		if err := ValidateLogoURL(logo); err != nil {
			errs = append(errs, err)
		}
		meta[MetaLogo] = logo
	}
	if priceSource != "" {
		if err := ValidatePriceSource(priceSource); err != nil {
			errs = append(errs, err)
		}
		meta[MetaPrice] = priceSource
	}
	if err := errors.Join(errs...); err != nil {
		return "", err
	}
	return journal.RenderCommodity(date, symbol, meta)
}

// ValidateLogoURL requires an absolute http or https URL.
func ValidateLogoURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("logo url %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("logo url %q: scheme must be http or https", s)
	}
	if u.Host == "" {
		return fmt.Errorf("logo url %q: missing host", s)
	}
	return nil
}

// ValidatePriceSource accepts "source: ticker" and beancount's
// "CUR:source/TICKER" forms.
func ValidatePriceSource(s string) error {
	left, right, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return fmt.Errorf("price source %q: want \"source: ticker\"", s)
	}
	if strings.TrimSpace(left) == "" || strings.TrimSpace(right) == "" {
		return fmt.Errorf("price source %q: source and ticker are required", s)
	}
	return nil
}
