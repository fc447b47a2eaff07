package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beandash/beandash/internal/controller"
	"github.com/beandash/beandash/internal/journalapi"
	"github.com/beandash/beandash/internal/model"
)

type stubRunner struct {
	mu   sync.Mutex
	out  map[string]string // query substring -> CSV
	err  error
	seen []string
}

func (s *stubRunner) Query(_ context.Context, q string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, q)
	if s.err != nil {
		return "", s.err
	}
	for k, v := range s.out {
		if strings.Contains(q, k) {
			return v, nil
		}
	}
	return "", nil
}

func newTestServer(t *testing.T, r *stubRunner) *httptest.Server {
	t.Helper()
	v := Views{
		BalanceSheet: controller.NewBalanceSheet(r, "USD", model.ValuationConvert, nil),
		Accounts:     controller.NewAccounts(r, "USD", nil),
		Overview:     controller.NewOverview(r, "USD", nil),
		Transactions: controller.NewTransactions(r, nil),
		Commodities:  controller.NewCommodities(r, "USD", nil),
	}
	srv := httptest.NewServer(NewRouter(v, nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBalanceSheet(t *testing.T) {
	r := &stubRunner{out: map[string]string{
		"AS balance": "account,balance\nAssets:Cash,10.00 USD\nLiabilities:Card,-4.00 USD\n",
	}}
	srv := newTestServer(t, r)

	var body struct {
		NetWorth string `json:"net_worth"`
		Mode     string `json:"mode"`
		Items    []struct {
			FullName string `json:"full_name"`
		} `json:"items"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/balance-sheet", &body))
	assert.Equal(t, "6.00 USD", body.NetWorth)
	assert.Len(t, body.Items, 4)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/balance-sheet?mode=cost", &body))
	assert.Equal(t, "cost", body.Mode)
	assert.Contains(t, r.seen[len(r.seen)-1], "cost(sum(position))")
}

func TestBalanceSheet_ParamsPerRequest(t *testing.T) {
	r := &stubRunner{out: map[string]string{"AS balance": "account,balance\nAssets:Cash,10.00 USD\n"}}
	srv := newTestServer(t, r)

	var body struct {
		Mode     string `json:"mode"`
		Currency string `json:"currency"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/balance-sheet?mode=units&currency=EUR", &body))
	assert.Equal(t, "units", body.Mode)
	assert.Equal(t, "EUR", body.Currency)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/balance-sheet", &body))
	assert.Equal(t, "convert", body.Mode)
	assert.Equal(t, "USD", body.Currency)
	assert.Contains(t, r.seen[len(r.seen)-1], "convert(sum(position), 'USD')")
}

func TestBalanceSheet_BadMode(t *testing.T) {
	r := &stubRunner{}
	srv := newTestServer(t, r)
	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/balance-sheet?mode=market", &body))
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, r.seen)
}

func TestUpstreamErrorIs502(t *testing.T) {
	srv := newTestServer(t, &stubRunner{err: errors.New("bean-query exited 1")})
	for _, path := range []string{"/api/balance-sheet", "/api/accounts", "/api/overview", "/api/transactions", "/api/commodities"} {
		var body map[string]string
		assert.Equal(t, http.StatusBadGateway, getJSON(t, srv.URL+path, &body), path)
		assert.Contains(t, body["error"], "bean-query exited 1", path)
	}
}

func TestAccountsSuggest(t *testing.T) {
	srv := newTestServer(t, &stubRunner{out: map[string]string{
		"DISTINCT account": "account\nAssets:Bank\nExpenses:Food\n",
	}})
	var body map[string][]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/accounts?q=food", &body))
	assert.Equal(t, []string{"Expenses:Food"}, body["accounts"])

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/accounts?q=nothing", &body))
	assert.Equal(t, []string{}, body["accounts"])
}

func TestTransactionsParams(t *testing.T) {
	r := &stubRunner{}
	srv := newTestServer(t, r)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/transactions?account=Expenses&since=2025-01-01&limit=5", &body))
	require.Len(t, r.seen, 1)
	assert.Contains(t, r.seen[0], "date >= 2025-01-01")
	assert.Contains(t, r.seen[0], "LIMIT 5")

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/transactions?since=yesterday", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/transactions?limit=-1", &body))
}

func TestOverviewPeriod(t *testing.T) {
	r := &stubRunner{}
	srv := newTestServer(t, r)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/overview?from=2024-01-01&to=2025-01-01", &body))
	joined := strings.Join(r.seen, "\n")
	assert.Contains(t, joined, "date >= 2024-01-01")
	assert.Contains(t, joined, "date < 2025-01-01")
}

func TestJournalNotConfigured(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/journal", &body))
}

type stubJournal struct {
	filter journalapi.EntryFilter
}

func (s *stubJournal) Entries(_ context.Context, f journalapi.EntryFilter) (journalapi.EntryPage, error) {
	s.filter = f
	return journalapi.EntryPage{
		Entries:    []model.Entry{{ID: "a1", Kind: model.KindOpen, Open: &model.Open{Account: "Assets:Cash"}}},
		TotalCount: 1,
	}, nil
}

func (s *stubJournal) Create(context.Context, model.Entry) (journalapi.Result, error) {
	return journalapi.Result{}, nil
}

func (s *stubJournal) Update(context.Context, string, model.Entry) (journalapi.Result, error) {
	return journalapi.Result{}, nil
}

func (s *stubJournal) Delete(context.Context, string) (journalapi.Result, error) {
	return journalapi.Result{}, nil
}

func TestJournal(t *testing.T) {
	backend := &stubJournal{}
	srv := httptest.NewServer(NewRouter(Views{Journal: controller.NewJournal(backend, nil, nil)}, nil))
	defer srv.Close()

	var body struct {
		Entries []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"entries"`
		TotalCount int `json:"total_count"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/journal?account=Assets:Cash&limit=10", &body))
	assert.Equal(t, 1, body.TotalCount)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "open", body.Entries[0].Kind)
	assert.Equal(t, "Assets:Cash", backend.filter.Account)
	assert.Equal(t, 10, backend.filter.Limit)
	assert.Equal(t, model.JournalKinds, backend.filter.Types)
}

func TestJournal_DateFilter(t *testing.T) {
	backend := &stubJournal{}
	srv := httptest.NewServer(NewRouter(Views{Journal: controller.NewJournal(backend, nil, nil)}, nil))
	defer srv.Close()

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/journal?start_date=2025-01-01&end_date=2025-02-01", &body))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), backend.filter.StartDate)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), backend.filter.EndDate)

	backend.filter = journalapi.EntryFilter{}
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/journal?start_date=bad", &body))
	assert.Contains(t, body["error"], "start_date")
	assert.True(t, backend.filter.StartDate.IsZero(), "backend not called")
}
