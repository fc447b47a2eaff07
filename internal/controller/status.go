// Package controller holds the view controllers. Each one owns a
// state.Store with its view state and refreshes it from bean-query or the
// journal backend on Load.
package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/querycsv"
	"github.com/beandash/beandash/internal/state"
)

// Status is the load state shared by every view.
type Status struct {
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (s *Status) status() *Status { return s }

type hasStatus interface {
	status() *Status
}

func markLoading[T any, PT interface {
	*T
	hasStatus
}](st *state.Store[T]) {
	st.Update(func(v T) T {
		s := PT(&v).status()
		s.Loading = true
		s.Error = ""
		return v
	})
}

// fail records err in the view state and returns it.
func fail[T any, PT interface {
	*T
	hasStatus
}](st *state.Store[T], err error) error {
	st.Update(func(v T) T {
		s := PT(&v).status()
		s.Loading = false
		s.Error = err.Error()
		return v
	})
	return err
}

// succeed applies fn and clears the loading flag.
func succeed[T any, PT interface {
	*T
	hasStatus
}](st *state.Store[T], now time.Time, fn func(*T)) {
	st.Update(func(v T) T {
		fn(&v)
		s := PT(&v).status()
		s.Loading = false
		s.Error = ""
		s.UpdatedAt = now
		return v
	})
}

func queryRows(ctx context.Context, r beanquery.Runner, q string) ([]querycsv.Row, error) {
	out, err := r.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := querycsv.ReadRows(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parsing query output: %w", err)
	}
	return rows, nil
}

func queryTable(ctx context.Context, r beanquery.Runner, q string) (*querycsv.Table, error) {
	out, err := r.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	t, err := querycsv.ReadTable(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parsing query output: %w", err)
	}
	return t, nil
}
