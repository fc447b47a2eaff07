package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBeanQuery = `#!/bin/sh
# args: -f csv <ledger> <query>
case "$4" in
  *"DISTINCT account"*)
    printf 'account\nAssets:Bank:Checking\nExpenses:Food\nLiabilities:Card\n' ;;
  *"AS balance"*)
    printf 'account,balance\nAssets:Bank:Checking,"100.00 USD, 2.00 EUR"\nLiabilities:Card,-40.00 USD\nEquity:Opening,-60.00 USD\n' ;;
  *"'^(Income)"*)
    printf 'total\n-200.00 USD\n' ;;
  *"'^(Expenses)"*)
    printf 'total\n150.00 USD\n' ;;
  *"AS total"*)
    printf 'total\n\n' ;;
  *"min(date)"*)
    printf 'first\n2024-01-15\n' ;;
  *"getprice"*)
    printf 'currency,units,price\nUSD,100.00 USD,\nVTI,3 VTI,250.00\n' ;;
  *"ORDER BY date DESC"*)
    printf 'date,flag,payee,narration,account,position\n2025-03-02,*,Grocer,Weekly,Expenses:Food,42.10 USD\n' ;;
  *)
    echo "unexpected query: $4" >&2; exit 1 ;;
esac
`

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping ledger test")
	}
}

// setupLedger writes a config, an empty ledger and a fake bean-query into
// a temp dir and returns the dir and the environment to run with.
func setupLedger(t *testing.T) (string, []string) {
	t.Helper()
	requireSh(t)

	dir := t.TempDir()
	_, err := runBeandash(t, dir, nil, "init", dir, "--ledger", "main.beancount")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.beancount"), []byte("; empty\n"), 0o644))

	script := filepath.Join(dir, "bean-query")
	require.NoError(t, os.WriteFile(script, []byte(fakeBeanQuery), 0o755))
	return dir, []string{"BEANDASH_BEAN_QUERY=" + script}
}

func TestBalance(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "balance")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Assets")
	assert.Contains(t, out, "    Checking")
	assert.Contains(t, out, "100.00 USD")
	assert.Contains(t, out, "2.00 EUR")
	assert.Contains(t, out, "Net worth: 60.00 USD")
	assert.Contains(t, out, "Not converted to USD: Assets:Bank:Checking")
}

func TestBalance_RootFilter(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "balance", "--root", "Liabilities")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Card")
	assert.NotContains(t, out, "Checking")
}

func TestBalance_BadMode(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "balance", "--mode", "market")
	require.Error(t, err)
	assert.Contains(t, out, "unknown valuation mode")
}

func TestAccounts(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "accounts", "--match", "bank")
	require.NoError(t, err, out)
	assert.Equal(t, "Assets:Bank:Checking\n", out)

	out, err = runBeandash(t, dir, env, "accounts", "--tree")
	require.NoError(t, err, out)
	assert.Contains(t, out, "All Accounts (3)")
	assert.Contains(t, out, "      Checking  100.00 USD")
}

func TestOverview(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "overview", "--from", "2025-01-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "200.00 USD")
	assert.Contains(t, out, "50.00 USD  (25.0%)")
	assert.Contains(t, out, "from 2025-01-01")
}

func TestTransactions(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "transactions", "--limit", "5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2025-03-02 * Grocer | Weekly")
	assert.Contains(t, out, "42.10 USD")

	_, err = runBeandash(t, dir, env, "transactions", "--since", "March")
	require.Error(t, err)
}

func TestCommodities(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "commodities")
	require.NoError(t, err, out)
	assert.Contains(t, out, "VTI")
	assert.Contains(t, out, "250.00 USD")
}

func TestCommodities_Declare(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "commodities", "--declare", "VTI", "--date", "2024-01-01",
		"--logo", "https://example.com/vti.png", "--price-source", "USD:yahoo/VTI")
	require.NoError(t, err, out)
	assert.Equal(t, "2024-01-01 commodity VTI\n  logo: \"https://example.com/vti.png\"\n  price: \"USD:yahoo/VTI\"\n", out)

	out, err = runBeandash(t, t.TempDir(), nil, "commodities", "--declare", "VTI", "--logo", "vti.png")
	require.Error(t, err)
	assert.Contains(t, out, "logo url")
}

func TestCommodities_DeclareDefaultsToFirstDate(t *testing.T) {
	dir, env := setupLedger(t)

	out, err := runBeandash(t, dir, env, "commodities", "--declare", "VTI")
	require.NoError(t, err, out)
	assert.Equal(t, "2024-01-15 commodity VTI\n", out)
}

func TestExport(t *testing.T) {
	dir, env := setupLedger(t)

	path := filepath.Join(dir, "out.xlsx")
	out, err := runBeandash(t, dir, env, "export", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Exported")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestJournalAdd_DryRun(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "journal", "add", "--dry-run",
		"--date", "2025-03-02", "--payee", "Grocer", "--narration", "Weekly",
		"--posting", "Expenses:Food 42.10 USD", "--posting", "Assets:Cash")
	require.NoError(t, err, out)
	assert.Contains(t, out, `2025-03-02 * "Grocer" "Weekly"`)
	assert.Contains(t, out, "Expenses:Food")
	assert.Contains(t, out, "42.10 USD")
}

func TestJournalAdd_Invalid(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "journal", "add", "--dry-run",
		"--posting", "Expenses:Food 42.10 USD")
	require.Error(t, err)
	assert.Contains(t, out, "postings")

	out, err = runBeandash(t, t.TempDir(), nil, "journal", "add", "--dry-run", "--posting", "Expenses:Food 42.10")
	require.Error(t, err)
	assert.Contains(t, out, "want")
}

func TestCache_Purge(t *testing.T) {
	dir, env := setupLedger(t)

	_, err := runBeandash(t, dir, env, "balance")
	require.NoError(t, err)

	out, err := runBeandash(t, dir, env, "cache", "stats")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 cached queries")

	out, err = runBeandash(t, dir, env, "cache", "purge")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Purged 1 cached queries")

	out, err = runBeandash(t, dir, env, "cache", "stats")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 cached queries")
}

func TestNoLedgerConfigured(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "balance")
	require.Error(t, err)
	assert.Contains(t, out, "no ledger configured")
}
