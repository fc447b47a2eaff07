package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/beandash/beandash/internal/accounts"
	"github.com/beandash/beandash/internal/amount"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/cache"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/state"
)

// AutocompleteTTL is how long the account list is reused for suggestions.
const AutocompleteTTL = 5 * time.Minute

// AccountsState is the accounts view.
type AccountsState struct {
	Status
	Root     *model.AccountNode `json:"root"`
	Count    int                `json:"count"`
	Balances map[string]string  `json:"balances,omitempty"` // full name -> amount in the reporting currency
}

// Accounts loads the account tree and keeps the account list warm for
// autocomplete.
type Accounts struct {
	runner   beanquery.Runner
	currency string
	store    *state.Store[AccountsState]
	names    *cache.Expiring[*accounts.Service]
	now      func() time.Time
	log      *slog.Logger
}

// NewAccounts creates a controller reporting balances in currency.
func NewAccounts(r beanquery.Runner, currency string, log *slog.Logger) *Accounts {
	if log == nil {
		log = slog.Default()
	}
	return &Accounts{
		runner:   r,
		currency: currency,
		store:    state.NewStore(AccountsState{}),
		names:    cache.NewExpiring[*accounts.Service](AutocompleteTTL),
		now:      time.Now,
		log:      log,
	}
}

// Store exposes the view state.
func (c *Accounts) Store() *state.Store[AccountsState] {
	return c.store
}

// Load refreshes the account list and per-account balances.
func (c *Accounts) Load(ctx context.Context) error {
	markLoading(c.store)
	c.names.Invalidate()

	svc, err := c.Service(ctx)
	if err != nil {
		return fail(c.store, err)
	}

	q := beanquery.BalanceQuery{Mode: model.ValuationConvert, Currency: c.currency}
	rows, err := queryRows(ctx, c.runner, q.String())
	if err != nil {
		return fail(c.store, err)
	}
	balances := make(map[string]string, len(rows))
	for _, row := range rows {
		balances[row.Account] = amount.ExtractConvertedAmount(row.Raw(), c.currency)
	}

	succeed(c.store, c.now(), func(s *AccountsState) {
		s.Root = accounts.BuildTreeWithRoot(svc.All())
		s.Count = len(svc.All())
		s.Balances = balances
	})
	return nil
}

// Service returns the account list, querying bean-query at most once per
// AutocompleteTTL.
func (c *Accounts) Service(ctx context.Context) (*accounts.Service, error) {
	return c.names.GetOrLoad(ctx, func(ctx context.Context) (*accounts.Service, error) {
		rows, err := queryRows(ctx, c.runner, beanquery.AccountsQuery())
		if err != nil {
			return nil, err
		}
		names := make([]string, len(rows))
		for i, row := range rows {
			names[i] = row.Account
		}
		c.log.Debug("account list refreshed", "count", len(names))
		return accounts.NewService(names), nil
	})
}

// Invalidate drops the cached account list.
func (c *Accounts) Invalidate() error {
	c.names.Invalidate()
	return nil
}

// Suggest returns accounts containing substr.
func (c *Accounts) Suggest(ctx context.Context, substr string) ([]string, error) {
	svc, err := c.Service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Matching(substr), nil
}

// Source adapts Service for the journal controller's account check.
func (c *Accounts) Source(ctx context.Context) (AccountSource, error) {
	svc, err := c.Service(ctx)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
