package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/beandash/beandash/internal/balance"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/state"
)

// BalanceSheetRoots are the root categories shown on the balance sheet.
var BalanceSheetRoots = []model.RootCategory{model.RootAssets, model.RootLiabilities, model.RootEquity}

// BalanceSheetState is the balance sheet view.
type BalanceSheetState struct {
	Status
	Currency    string               `json:"currency"`
	Mode        model.ValuationMode  `json:"mode"`
	Items       []*model.AccountItem `json:"items"` // pre-order
	NetWorth    string               `json:"net_worth"`
	Unconverted []string             `json:"unconverted,omitempty"`
	Sheet       *balance.Sheet       `json:"-"`
}

// BalanceSheet loads per-account balances and aggregates them into the
// account hierarchy.
type BalanceSheet struct {
	runner   beanquery.Runner
	currency string
	mode     model.ValuationMode
	store    *state.Store[BalanceSheetState]
	now      func() time.Time
	log      *slog.Logger
}

// NewBalanceSheet creates a controller reporting in currency.
func NewBalanceSheet(r beanquery.Runner, currency string, mode model.ValuationMode, log *slog.Logger) *BalanceSheet {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceSheet{
		runner:   r,
		currency: currency,
		mode:     mode,
		store:    state.NewStore(BalanceSheetState{Currency: currency, Mode: mode}),
		now:      time.Now,
		log:      log,
	}
}

// Store exposes the view state.
func (c *BalanceSheet) Store() *state.Store[BalanceSheetState] {
	return c.store
}

// Load queries balances with the current mode and currency.
func (c *BalanceSheet) Load(ctx context.Context) error {
	markLoading(c.store)
	snap := c.store.Snapshot()

	res, err := c.build(ctx, snap.Currency, snap.Mode)
	if err != nil {
		c.log.Error("balance sheet load failed", "error", err)
		return fail(c.store, err)
	}
	succeed(c.store, res.UpdatedAt, func(s *BalanceSheetState) {
		// Settings this result was computed with; last write wins.
		s.Currency = res.Currency
		s.Mode = res.Mode
		s.Items = res.Items
		s.NetWorth = res.NetWorth
		s.Unconverted = res.Unconverted
		s.Sheet = res.Sheet
	})
	return nil
}

// Query builds a balance sheet for currency and mode without touching the
// view state. Empty arguments fall back to the constructor's settings.
func (c *BalanceSheet) Query(ctx context.Context, currency string, mode model.ValuationMode) (BalanceSheetState, error) {
	if currency == "" {
		currency = c.currency
	}
	if mode == "" {
		mode = c.mode
	}
	return c.build(ctx, currency, mode)
}

func (c *BalanceSheet) build(ctx context.Context, currency string, mode model.ValuationMode) (BalanceSheetState, error) {
	opts := balance.Options{ReportingCurrency: currency, Mode: mode}
	q := beanquery.BalanceQuery{Mode: mode, Currency: currency, Roots: BalanceSheetRoots}
	rows, err := queryRows(ctx, c.runner, q.String())
	if err != nil {
		return BalanceSheetState{}, err
	}

	sheet := balance.NewSheet(rows, opts)
	var unconverted []string
	for _, item := range sheet.Unconverted() {
		unconverted = append(unconverted, item.FullName)
	}
	c.log.Debug("balance sheet built", "rows", len(rows), "unconverted", len(unconverted))

	return BalanceSheetState{
		Status:      Status{UpdatedAt: c.now()},
		Currency:    currency,
		Mode:        mode,
		Items:       sheet.Rows,
		NetWorth:    sheet.NetWorthString(),
		Unconverted: unconverted,
		Sheet:       sheet,
	}, nil
}

// SetMode switches the valuation mode and reloads.
func (c *BalanceSheet) SetMode(ctx context.Context, mode model.ValuationMode) error {
	c.store.Update(func(s BalanceSheetState) BalanceSheetState {
		s.Mode = mode
		return s
	})
	return c.Load(ctx)
}

// SetCurrency switches the reporting currency and reloads.
func (c *BalanceSheet) SetCurrency(ctx context.Context, currency string) error {
	c.store.Update(func(s BalanceSheetState) BalanceSheetState {
		s.Currency = currency
		return s
	})
	return c.Load(ctx)
}
