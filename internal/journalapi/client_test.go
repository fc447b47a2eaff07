package journalapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beandash/beandash/internal/model"
)

const entriesJSON = `{
  "entries": [
    {
      "id": "abc123", "type": "transaction", "date": "2025-03-02",
      "metadata": {"filename": "main.beancount", "lineno": 12},
      "flag": "*", "payee": "Grocer", "narration": "Weekly shop",
      "tags": ["food"], "links": [],
      "postings": [
        {"account": "Expenses:Food", "amount": "42.10", "currency": "USD", "price": null, "cost": null, "flag": null, "comment": null, "metadata": {}},
        {"account": "Assets:Broker", "amount": "2", "currency": "VTI",
         "price": {"amount": "250.00", "currency": "USD"},
         "cost": {"number": "240.00", "currency": "USD", "date": "2025-01-05", "label": null},
         "flag": null, "comment": null, "metadata": {"lot": "a"}}
      ]
    },
    {"id": "b1", "type": "balance", "date": "2025-03-01", "metadata": {}, "account": "Assets:Cash", "amount": "10.00", "currency": "USD", "tolerance": null, "diff_amount": "0.50"},
    {"id": "p1", "type": "pad", "date": "2025-02-28", "metadata": {}, "account": "Assets:Cash", "source_account": "Equity:Opening"},
    {"id": "n1", "type": "note", "date": "2025-02-27", "metadata": {}, "account": "Assets:Cash", "comment": "called bank"}
  ],
  "total_count": 9, "returned_count": 4, "offset": 0, "limit": 4, "has_more": true
}`

func newBackend(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestEntries_DecodesTaggedUnion(t *testing.T) {
	var got url.Values
	r := chi.NewRouter()
	r.Get("/entries", func(w http.ResponseWriter, req *http.Request) {
		got = req.URL.Query()
		_, _ = w.Write([]byte(entriesJSON))
	})
	c := newBackend(t, r)

	page, err := c.Entries(context.Background(), EntryFilter{
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Account:   "Assets",
		Types:     []model.EntryKind{model.KindTransaction, model.KindBalance},
		Limit:     4,
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-01-01", got.Get("start_date"))
	assert.Equal(t, "Assets", got.Get("account"))
	assert.Equal(t, "transaction,balance", got.Get("types"))
	assert.Equal(t, "4", got.Get("limit"))
	assert.Empty(t, got.Get("offset"))

	assert.Equal(t, 9, page.TotalCount)
	assert.True(t, page.HasMore)
	require.Len(t, page.Entries, 4)

	txn := page.Entries[0]
	assert.Equal(t, model.KindTransaction, txn.Kind)
	assert.Equal(t, "12", txn.Metadata["lineno"])
	require.NotNil(t, txn.Transaction)
	assert.Equal(t, "Weekly shop", txn.Transaction.Narration)
	require.Len(t, txn.Transaction.Postings, 2)
	broker := txn.Transaction.Postings[1]
	require.NotNil(t, broker.Price)
	require.NotNil(t, broker.Cost)
	assert.Equal(t, "240.00", broker.Cost.Number)
	assert.Equal(t, "a", broker.Metadata["lot"])
	assert.Nil(t, txn.Transaction.Postings[0].Cost)

	assert.Equal(t, "0.50", page.Entries[1].Balance.DiffAmount)
	assert.Equal(t, "Equity:Opening", page.Entries[2].Pad.SourceAccount)
	assert.Equal(t, "called bank", page.Entries[3].Note.Comment)
	assert.Equal(t, "Assets:Cash", page.Entries[3].Account())
}

func TestTransactions_LegacyKey(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/transactions", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.URL.Query().Get("types"))
		_, _ = w.Write([]byte(`{"transactions":[{"id":"x","type":"transaction","date":"2025-01-01","narration":"n","postings":[]}],"total_count":1,"returned_count":1,"offset":0,"limit":100,"has_more":false}`))
	})
	c := newBackend(t, r)

	page, err := c.Transactions(context.Background(), EntryFilter{Types: []model.EntryKind{model.KindNote}})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "x", page.Entries[0].ID)
}

func TestEntries_UnknownType(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/entries", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entries":[{"id":"e","type":"custom","date":"2025-01-01"}]}`))
	})
	c := newBackend(t, r)

	_, err := c.Entries(context.Background(), EntryFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported entry type")
}

func TestGet_NotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/transactions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Transaction not found"}`))
	})
	c := newBackend(t, r)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_SendsWireShape(t *testing.T) {
	var body map[string]any
	r := chi.NewRouter()
	r.Post("/transactions", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"Transaction added successfully","backup_file":"main.beancount.bak"}`))
	})
	c := newBackend(t, r)

	res, err := c.Create(context.Background(), model.Entry{
		ID:   "ignored",
		Kind: model.KindTransaction,
		Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Transaction: &model.Transaction{
			Flag: "*",
			Postings: []model.Posting{
				{Account: "Expenses:Rent", Amount: "900", Currency: "USD", Cost: &model.Cost{Number: "1", Currency: "USD", IsTotal: true}},
				{Account: "Assets:Bank"},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "main.beancount.bak", res.BackupFile)

	assert.Equal(t, "transaction", body["type"])
	assert.Equal(t, "2025-04-01", body["date"])
	assert.NotContains(t, body, "id")
	assert.Contains(t, body, "narration", "narration is always sent for transactions")
	postings := body["postings"].([]any)
	require.Len(t, postings, 2)
	cost := postings[0].(map[string]any)["cost"].(map[string]any)
	assert.Equal(t, true, cost["isTotal"])
}

func TestUpdateDelete(t *testing.T) {
	var methods []string
	r := chi.NewRouter()
	r.Put("/transactions/{id}", func(w http.ResponseWriter, req *http.Request) {
		methods = append(methods, req.Method+" "+chi.URLParam(req, "id"))
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	r.Delete("/transactions/{id}", func(w http.ResponseWriter, req *http.Request) {
		methods = append(methods, req.Method+" "+chi.URLParam(req, "id"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"Could not locate transaction in file"}`))
	})
	c := newBackend(t, r)

	_, err := c.Update(context.Background(), "n1", model.Entry{
		Kind: model.KindNote, Date: time.Now(), Note: &model.Note{Account: "Assets:Cash", Comment: "c"},
	})
	require.NoError(t, err)

	_, err = c.Delete(context.Background(), "n1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Could not locate transaction in file", apiErr.Message)

	assert.Equal(t, []string{"PUT n1", "DELETE n1"}, methods)
}

func TestWrite_MissingPayload(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Create(context.Background(), model.Entry{Kind: model.KindBalance})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no balance payload")
}

func TestHealthReload(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","timestamp":"2025-01-01T00:00:00"}`))
	})
	r.Post("/reload", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"parse failed"}`))
	})
	c := newBackend(t, r)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	err = c.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failed")
}
