// Package journalapi is a client for the journal backend, a local HTTP
// service that reads and edits the ledger file.
package journalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/model"
)

// DefaultPageSize matches the backend's default limit.
const DefaultPageSize = 100

// ErrNotFound is returned when the backend has no entry with the given ID.
var ErrNotFound = errors.New("entry not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("journal backend: HTTP %d", e.Status)
	}
	return fmt.Sprintf("journal backend: HTTP %d: %s", e.Status, e.Message)
}

// Client talks to the journal backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health is the backend liveness response.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Result is the backend's reply to a write.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	BackupFile string `json:"backup_file,omitempty"`
}

// EntryFilter narrows an entry listing. Zero fields are not sent.
type EntryFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Account   string
	Payee     string
	Tag       string
	Search    string
	Types     []model.EntryKind
	Limit     int
	Offset    int
}

func (f EntryFilter) values() url.Values {
	v := url.Values{}
	if !f.StartDate.IsZero() {
		v.Set("start_date", f.StartDate.Format(dateFormat))
	}
	if !f.EndDate.IsZero() {
		v.Set("end_date", f.EndDate.Format(dateFormat))
	}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("account", f.Account)
	set("payee", f.Payee)
	set("tag", f.Tag)
	set("search", f.Search)
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, k := range f.Types {
			types[i] = string(k)
		}
		v.Set("types", strings.Join(types, ","))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	return v
}

// EntryPage is one page of entries, newest first.
type EntryPage struct {
	Entries       []model.Entry
	TotalCount    int
	ReturnedCount int
	Offset        int
	Limit         int
	HasMore       bool
}

type wirePage struct {
	Entries       []wireEntry `json:"entries"`
	Transactions  []wireEntry `json:"transactions"`
	TotalCount    int         `json:"total_count"`
	ReturnedCount int         `json:"returned_count"`
	Offset        int         `json:"offset"`
	Limit         int         `json:"limit"`
	HasMore       bool        `json:"has_more"`
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// Reload asks the backend to re-read the ledger.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reload", nil, nil, nil)
}

// Entries lists entries of any kind.
func (c *Client) Entries(ctx context.Context, f EntryFilter) (EntryPage, error) {
	return c.page(ctx, "/entries", f)
}

// Transactions lists transactions only through the older endpoint.
func (c *Client) Transactions(ctx context.Context, f EntryFilter) (EntryPage, error) {
	f.Types = nil
	return c.page(ctx, "/transactions", f)
}

func (c *Client) page(ctx context.Context, path string, f EntryFilter) (EntryPage, error) {
	var wp wirePage
	if err := c.do(ctx, http.MethodGet, path, f.values(), nil, &wp); err != nil {
		return EntryPage{}, err
	}
	raw := wp.Entries
	if raw == nil {
		raw = wp.Transactions
	}

	page := EntryPage{
		TotalCount:    wp.TotalCount,
		ReturnedCount: wp.ReturnedCount,
		Offset:        wp.Offset,
		Limit:         wp.Limit,
		HasMore:       wp.HasMore,
	}
	for _, w := range raw {
		e, err := toEntry(w)
		if err != nil {
			return EntryPage{}, fmt.Errorf("decoding entry: %w", err)
		}
		page.Entries = append(page.Entries, e)
	}
	return page, nil
}

// Get fetches one entry by ID.
func (c *Client) Get(ctx context.Context, id string) (model.Entry, error) {
	var w wireEntry
	err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), nil, nil, &w)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return model.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return model.Entry{}, err
	}
	return toEntry(w)
}

// Create appends a new entry to the ledger.
func (c *Client) Create(ctx context.Context, e model.Entry) (Result, error) {
	return c.write(ctx, http.MethodPost, "/transactions", e)
}

// Update replaces the entry with the given ID.
func (c *Client) Update(ctx context.Context, id string, e model.Entry) (Result, error) {
	return c.write(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id), e)
}

// Delete removes the entry with the given ID.
func (c *Client) Delete(ctx context.Context, id string) (Result, error) {
	var r Result
	if err := c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (c *Client) write(ctx context.Context, method, path string, e model.Entry) (Result, error) {
	w, err := fromEntry(e)
	if err != nil {
		return Result{}, err
	}
	w.ID = ""
	var r Result
	if err := c.do(ctx, method, path, nil, w, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// errorMessage pulls "error" (or "message") out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
