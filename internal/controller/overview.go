package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/beandash/beandash/internal/amount"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/state"
)

// OverviewState summarizes net worth and cash flow for a period.
type OverviewState struct {
	Status
	Currency string    `json:"currency"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to,omitzero"` // zero means up to today

	NetWorth    decimal.Decimal `json:"net_worth"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Income      decimal.Decimal `json:"income"`   // positive
	Expenses    decimal.Decimal `json:"expenses"` // positive
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate decimal.Decimal `json:"savings_rate"` // percent of income
}

// Overview computes dashboard totals. Every figure is converted to the
// reporting currency.
type Overview struct {
	runner   beanquery.Runner
	currency string
	store    *state.Store[OverviewState]
	now      func() time.Time
	log      *slog.Logger
}

// NewOverview creates a controller reporting in currency.
func NewOverview(r beanquery.Runner, currency string, log *slog.Logger) *Overview {
	if log == nil {
		log = slog.Default()
	}
	return &Overview{
		runner:   r,
		currency: currency,
		store:    state.NewStore(OverviewState{Currency: currency}),
		now:      time.Now,
		log:      log,
	}
}

// Store exposes the view state.
func (c *Overview) Store() *state.Store[OverviewState] {
	return c.store
}

// Load computes the overview for the year to date.
func (c *Overview) Load(ctx context.Context) error {
	now := c.now()
	return c.LoadPeriod(ctx, time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), time.Time{})
}

// LoadPeriod computes income and expenses over [from, to). Net worth is
// always taken over the whole ledger.
func (c *Overview) LoadPeriod(ctx context.Context, from, to time.Time) error {
	markLoading(c.store)

	var assets, liabilities, income, expenses decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	total := func(dst *decimal.Decimal, q beanquery.TotalQuery) {
		g.Go(func() error {
			v, err := c.total(gctx, q)
			if err != nil {
				return fmt.Errorf("%s total: %w", q.Root, err)
			}
			*dst = v
			return nil
		})
	}
	base := beanquery.TotalQuery{Mode: model.ValuationConvert, Currency: c.currency}
	total(&assets, with(base, model.RootAssets, time.Time{}, time.Time{}))
	total(&liabilities, with(base, model.RootLiabilities, time.Time{}, time.Time{}))
	total(&income, with(base, model.RootIncome, from, to))
	total(&expenses, with(base, model.RootExpenses, from, to))

	if err := g.Wait(); err != nil {
		c.log.Error("overview load failed", "error", err)
		return fail(c.store, err)
	}

	// Income is recorded as negative amounts.
	income = income.Neg()
	savings := income.Sub(expenses)
	rate := decimal.Zero
	if income.IsPositive() {
		rate = savings.Div(income).Mul(decimal.NewFromInt(100)).Round(1)
	}

	succeed(c.store, c.now(), func(s *OverviewState) {
		s.Currency = c.currency
		s.From, s.To = from, to
		s.Assets = assets
		s.Liabilities = liabilities
		s.NetWorth = assets.Add(liabilities)
		s.Income = income
		s.Expenses = expenses
		s.Savings = savings
		s.SavingsRate = rate
	})
	return nil
}

func with(q beanquery.TotalQuery, root model.RootCategory, from, to time.Time) beanquery.TotalQuery {
	q.Root, q.From, q.To = root, from, to
	return q
}

func (c *Overview) total(ctx context.Context, q beanquery.TotalQuery) (decimal.Decimal, error) {
	t, err := queryTable(ctx, c.runner, q.String())
	if err != nil {
		return decimal.Zero, err
	}
	if t.Len() == 0 {
		return decimal.Zero, nil
	}
	cell := t.Get(0, "total")
	return amount.Parse(amount.ExtractConvertedAmount(cell, c.currency)).Amount, nil
}

// Format renders a figure in the reporting currency.
func (s OverviewState) Format(n decimal.Decimal) string {
	return amount.Format(n, s.Currency)
}
