package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/journalapi"
	"github.com/beandash/beandash/internal/model"
)

const dateFormat = "2006-01-02"

// GET /api/balance-sheet?mode=convert&currency=USD
// Parameters apply to this request only.
func (h *handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var mode model.ValuationMode
	if s := q.Get("mode"); s != "" {
		m, err := model.ParseValuationMode(s)
		if err != nil {
			h.fail(w, r, badRequest{err})
			return
		}
		mode = m
	}
	sheet, err := h.views.BalanceSheet.Query(r.Context(), q.Get("currency"), mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// GET /api/accounts, or /api/accounts?q=bank for suggestions.
func (h *handler) accounts(w http.ResponseWriter, r *http.Request) {
	c := h.views.Accounts
	if r.URL.Query().Has("q") {
		names, err := c.Suggest(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"accounts": names})
		return
	}
	if err := c.Load(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Store().Snapshot())
}

// GET /api/overview?from=2025-01-01&to=2025-07-01
func (h *handler) overview(w http.ResponseWriter, r *http.Request) {
	c := h.views.Overview
	q := r.URL.Query()
	from, err := dateParam(q, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := dateParam(q, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if from.IsZero() && to.IsZero() {
		err = c.Load(r.Context())
	} else {
		err = c.LoadPeriod(r.Context(), from, to)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Store().Snapshot())
}

// GET /api/transactions?account=Expenses&since=2025-01-01&until=...&limit=20
func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	c := h.views.Transactions
	q := r.URL.Query()
	since, err := dateParam(q, "since")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	until, err := dateParam(q, "until")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tq := beanquery.TransactionsQuery{Account: q.Get("account"), Since: since, Until: until, Limit: limit}
	if err := c.SetQuery(r.Context(), tq); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Store().Snapshot())
}

// GET /api/commodities
func (h *handler) commodities(w http.ResponseWriter, r *http.Request) {
	c := h.views.Commodities
	if err := c.Load(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Store().Snapshot())
}

// GET /api/journal?account=&payee=&tag=&search=&start_date=&end_date=&limit=
func (h *handler) journal(w http.ResponseWriter, r *http.Request) {
	c := h.views.Journal
	if c == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "journal backend not configured")
		return
	}
	q := r.URL.Query()
	start, err := dateParam(q, "start_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := dateParam(q, "end_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f := journalapi.EntryFilter{
		StartDate: start,
		EndDate:   end,
		Account:   q.Get("account"),
		Payee:     q.Get("payee"),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		Limit:     limit,
	}
	if err := c.SetFilter(r.Context(), f); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Store().Snapshot())
}

func dateParam(q url.Values, name string) (time.Time, error) {
	s := q.Get(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, badRequest{fmt.Errorf("%s: want YYYY-MM-DD, got %q", name, s)}
	}
	return t, nil
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest{fmt.Errorf("%s: want a non-negative integer, got %q", name, s)}
	}
	return n, nil
}
