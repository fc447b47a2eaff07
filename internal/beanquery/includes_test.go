package beanquery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSplitLedger lays out main.beancount including a fixed file, a glob
// and a nested include, the way split ledgers usually look.
func writeSplitLedger(t *testing.T) (dir, main string) {
	t.Helper()
	dir = t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write("main.beancount", `option "title" "Books"
include "dependencies/commodities.beancount"
include "years/*.beancount"
include "missing.beancount"
2025-01-01 open Assets:Cash
`)
	write("dependencies/commodities.beancount", "include \"../accounts.beancount\"\n2020-01-01 commodity VTI\n")
	write("accounts.beancount", "include \"main.beancount\"\n2020-01-01 open Assets:Broker\n")
	write("years/2024.beancount", "2024-01-01 open Expenses:Food\n")
	write("years/2025.beancount", "2025-01-01 open Expenses:Rent\n")
	return dir, filepath.Join(dir, "main.beancount")
}

func TestIncludedFiles(t *testing.T) {
	dir, main := writeSplitLedger(t)

	files, err := IncludedFiles(main)
	require.NoError(t, err)
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.Equal(t, []string{
		"main.beancount",
		"dependencies/commodities.beancount",
		"accounts.beancount",
		"years/2024.beancount",
		"years/2025.beancount",
	}, rel)
}

func TestIncludedFiles_MissingLedger(t *testing.T) {
	_, err := IncludedFiles(filepath.Join(t.TempDir(), "nope.beancount"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLedgerModTime_FollowsIncludes(t *testing.T) {
	dir, main := writeSplitLedger(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	files, err := IncludedFiles(main)
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, os.Chtimes(f, base, base))
	}

	r := NewExecRunner("", main, 0)
	got, err := r.LedgerModTime()
	require.NoError(t, err)
	assert.True(t, got.Equal(base))

	later := base.Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "dependencies/commodities.beancount"), later, later))
	got, err = r.LedgerModTime()
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}

func TestCachingRunner_IncludedFileChangeMisses(t *testing.T) {
	dir, main := writeSplitLedger(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	files, err := IncludedFiles(main)
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, os.Chtimes(f, base, base))
	}

	next := &countingRunner{out: "account\nAssets:Cash\n"}
	r := &CachingRunner{Next: next, Ledger: NewExecRunner("", main, 0), Cache: openCache(t)}

	for range 2 {
		_, err := r.Query(context.Background(), "SELECT account")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, next.calls)

	later := base.Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "years/2025.beancount"), later, later))
	_, err = r.Query(context.Background(), "SELECT account")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachingRunner_Invalidate(t *testing.T) {
	next := &countingRunner{out: "x"}
	c := openCache(t)
	r := &CachingRunner{Next: next, Ledger: &fixedModTime{}, Cache: c}

	_, err := r.Query(context.Background(), "q")
	require.NoError(t, err)
	require.NoError(t, r.Invalidate())
	n, err := c.Len()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
