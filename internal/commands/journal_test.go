package commands_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalList_DateFilter(t *testing.T) {
	dir, env := setupLedger(t)

	var mu sync.Mutex
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.URL.Query()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries":[],"total_count":0,"has_more":false}`))
	}))
	defer srv.Close()

	env = append(env, "BEANDASH_BACKEND_URL="+srv.URL)
	out, err := runBeandash(t, dir, env, "journal", "list", "--since", "2025-01-01", "--until", "2025-02-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 of 0 entries")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "2025-01-01", got.Get("start_date"))
	assert.Equal(t, "2025-02-01", got.Get("end_date"))
}

func TestJournalList_BadDate(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "journal", "list", "--since", "yesterday")
	require.Error(t, err)
	assert.Contains(t, out, "--since: want YYYY-MM-DD")
}
