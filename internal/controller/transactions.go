package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/state"
)

// DefaultTransactionLimit bounds the recent transactions list.
const DefaultTransactionLimit = 50

// Transaction column names in the query output.
const (
	colDate      = "date"
	colFlag      = "flag"
	colPayee     = "payee"
	colNarration = "narration"
	colAccount   = "account"
	colPosition  = "position"
)

// TransactionRow is one posting of a recent transaction.
type TransactionRow struct {
	Date      string `json:"date"`
	Flag      string `json:"flag"`
	Payee     string `json:"payee,omitempty"`
	Narration string `json:"narration"`
	Account   string `json:"account"`
	Position  string `json:"position"`
}

// TransactionsState is the recent transactions view.
type TransactionsState struct {
	Status
	Query beanquery.TransactionsQuery `json:"-"`
	Rows  []TransactionRow            `json:"rows"`
}

// Transactions lists recent postings from bean-query.
type Transactions struct {
	runner beanquery.Runner
	store  *state.Store[TransactionsState]
	now    func() time.Time
	log    *slog.Logger
}

// NewTransactions creates a controller.
func NewTransactions(r beanquery.Runner, log *slog.Logger) *Transactions {
	if log == nil {
		log = slog.Default()
	}
	return &Transactions{
		runner: r,
		store:  state.NewStore(TransactionsState{Query: beanquery.TransactionsQuery{Limit: DefaultTransactionLimit}}),
		now:    time.Now,
		log:    log,
	}
}

// Store exposes the view state.
func (c *Transactions) Store() *state.Store[TransactionsState] {
	return c.store
}

// Load runs the current query.
func (c *Transactions) Load(ctx context.Context) error {
	markLoading(c.store)
	q := c.store.Snapshot().Query

	t, err := queryTable(ctx, c.runner, q.String())
	if err != nil {
		c.log.Error("transactions load failed", "error", err)
		return fail(c.store, err)
	}
	rows := make([]TransactionRow, 0, t.Len())
	for i := range t.Len() {
		rows = append(rows, TransactionRow{
			Date:      t.Get(i, colDate),
			Flag:      t.Get(i, colFlag),
			Payee:     t.Get(i, colPayee),
			Narration: t.Get(i, colNarration),
			Account:   t.Get(i, colAccount),
			Position:  t.Get(i, colPosition),
		})
	}

	succeed(c.store, c.now(), func(s *TransactionsState) {
		s.Query = q
		s.Rows = rows
	})
	return nil
}

// SetQuery replaces the filter and reloads.
func (c *Transactions) SetQuery(ctx context.Context, q beanquery.TransactionsQuery) error {
	if q.Limit <= 0 {
		q.Limit = DefaultTransactionLimit
	}
	c.store.Update(func(s TransactionsState) TransactionsState {
		s.Query = q
		return s
	})
	return c.Load(ctx)
}
