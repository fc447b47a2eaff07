package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/beandash/beandash/internal/journal"
	"github.com/beandash/beandash/internal/journalapi"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/state"
)

// JournalBackend is the part of the journal backend client the view uses.
type JournalBackend interface {
	Entries(ctx context.Context, f journalapi.EntryFilter) (journalapi.EntryPage, error)
	Create(ctx context.Context, e model.Entry) (journalapi.Result, error)
	Update(ctx context.Context, id string, e model.Entry) (journalapi.Result, error)
	Delete(ctx context.Context, id string) (journalapi.Result, error)
}

// ErrUnsupportedKind is returned when writing an entry kind the backend
// cannot create or update.
var ErrUnsupportedKind = errors.New("entry kind cannot be written through the journal backend")

// Invalidator drops derived data after the ledger changes.
type Invalidator interface {
	Invalidate() error
}

// AccountSource supplies the known accounts for validation.
type AccountSource interface {
	Exists(name string) bool
}

// JournalState is one page of the journal view.
type JournalState struct {
	Status
	Filter     journalapi.EntryFilter `json:"-"`
	Entries    []model.Entry          `json:"entries"`
	TotalCount int                    `json:"total_count"`
	HasMore    bool                   `json:"has_more"`
}

// Journal lists and edits entries through the journal backend.
type Journal struct {
	backend     JournalBackend
	accounts    func(context.Context) (AccountSource, error)
	invalidates []Invalidator
	store       *state.Store[JournalState]
	now         func() time.Time
	log         *slog.Logger
}

// NewJournal creates a controller. accounts may be nil to skip the
// unknown-account check on writes.
func NewJournal(backend JournalBackend, accounts func(context.Context) (AccountSource, error), log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{
		backend:  backend,
		accounts: accounts,
		store: state.NewStore(JournalState{Filter: journalapi.EntryFilter{
			Types: model.JournalKinds,
			Limit: journalapi.DefaultPageSize,
		}}),
		now: time.Now,
		log: log,
	}
}

// WithInvalidators registers caches to drop after every successful write.
func (c *Journal) WithInvalidators(inv ...Invalidator) *Journal {
	c.invalidates = append(c.invalidates, inv...)
	return c
}

// Store exposes the view state.
func (c *Journal) Store() *state.Store[JournalState] {
	return c.store
}

// Load fetches the page described by the current filter.
func (c *Journal) Load(ctx context.Context) error {
	markLoading(c.store)
	f := c.store.Snapshot().Filter

	page, err := c.backend.Entries(ctx, f)
	if err != nil {
		c.log.Error("journal load failed", "error", err)
		return fail(c.store, err)
	}
	succeed(c.store, c.now(), func(s *JournalState) {
		s.Filter = f
		s.Entries = page.Entries
		s.TotalCount = page.TotalCount
		s.HasMore = page.HasMore
	})
	return nil
}

// SetFilter replaces the filter, returns to the first page and reloads.
func (c *Journal) SetFilter(ctx context.Context, f journalapi.EntryFilter) error {
	if len(f.Types) == 0 {
		f.Types = model.JournalKinds
	}
	if f.Limit <= 0 {
		f.Limit = journalapi.DefaultPageSize
	}
	f.Offset = 0
	c.store.Update(func(s JournalState) JournalState {
		s.Filter = f
		return s
	})
	return c.Load(ctx)
}

// NextPage advances to the next page if there is one.
func (c *Journal) NextPage(ctx context.Context) error {
	snap := c.store.Snapshot()
	if !snap.HasMore {
		return nil
	}
	c.store.Update(func(s JournalState) JournalState {
		s.Filter.Offset += s.Filter.Limit
		return s
	})
	return c.Load(ctx)
}

// Add validates e, sends it to the backend and reloads.
func (c *Journal) Add(ctx context.Context, e model.Entry) (journalapi.Result, error) {
	if err := c.validate(ctx, e); err != nil {
		return journalapi.Result{}, err
	}
	res, err := c.backend.Create(ctx, e)
	if err != nil {
		return journalapi.Result{}, fmt.Errorf("adding %s: %w", e.Kind, err)
	}
	c.log.Info("journal entry added", "kind", e.Kind, "backup", res.BackupFile)
	c.invalidate()
	return res, c.Load(ctx)
}

// Update validates e, replaces entry id and reloads.
func (c *Journal) Update(ctx context.Context, id string, e model.Entry) (journalapi.Result, error) {
	if err := c.validate(ctx, e); err != nil {
		return journalapi.Result{}, err
	}
	res, err := c.backend.Update(ctx, id, e)
	if err != nil {
		return journalapi.Result{}, fmt.Errorf("updating %s: %w", id, err)
	}
	c.log.Info("journal entry updated", "id", id, "backup", res.BackupFile)
	c.invalidate()
	return res, c.Load(ctx)
}

// Delete removes entry id and reloads.
func (c *Journal) Delete(ctx context.Context, id string) (journalapi.Result, error) {
	res, err := c.backend.Delete(ctx, id)
	if err != nil {
		return journalapi.Result{}, fmt.Errorf("deleting %s: %w", id, err)
	}
	c.log.Info("journal entry deleted", "id", id, "backup", res.BackupFile)
	c.invalidate()
	return res, c.Load(ctx)
}

// invalidate runs after the backend accepted a write. A failing cache is
// logged; the write already happened.
func (c *Journal) invalidate() {
	for _, inv := range c.invalidates {
		if err := inv.Invalidate(); err != nil {
			c.log.Warn("cache invalidation failed", "error", err)
		}
	}
}

func (c *Journal) validate(ctx context.Context, e model.Entry) error {
	if !slices.Contains(model.WritableKinds, e.Kind) {
		return fmt.Errorf("%s: %w", e.Kind, ErrUnsupportedKind)
	}
	var checker journal.AccountChecker
	if c.accounts != nil {
		src, err := c.accounts(ctx)
		if err != nil {
			// Validation still runs without the account list.
			c.log.Warn("account list unavailable", "error", err)
		} else {
			checker = src
		}
	}
	return journal.Check(e, checker)
}
