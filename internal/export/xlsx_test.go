package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/beandash/beandash/internal/balance"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/querycsv"
)

func TestWriteBalanceSheet(t *testing.T) {
	opts := balance.Options{ReportingCurrency: "USD", Mode: model.ValuationConvert}
	items := balance.Flatten(balance.Build([]querycsv.Row{
		{Account: "Assets:Bank:Checking", Cells: []string{"100.00 USD"}},
		{Account: "Assets:Bank:Savings", Cells: []string{"50.00 USD", "5.00 EUR"}},
	}, opts))

	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	err := WriteBalanceSheet(path, items, Meta{
		Currency:  "USD",
		Mode:      model.ValuationConvert,
		NetWorth:  decimal.RequireFromString("150"),
		Generated: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{BalanceSheetName}, f.GetSheetList())

	rows, err := f.GetRows(BalanceSheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"Assets", "150", "5.00 EUR"}, rows[1])
	assert.Equal(t, []string{"Bank", "150", "5.00 EUR"}, rows[2])
	assert.Equal(t, []string{"Checking", "100"}, rows[3])
	assert.Equal(t, []string{"Savings", "50", "5.00 EUR"}, rows[4])
	assert.Equal(t, []string{"Net Worth (USD)", "150"}, rows[6])
	assert.Equal(t, []string{"Valuation", "convert"}, rows[7])
	assert.Equal(t, []string{"Generated", "2025-01-02T03:04:05Z"}, rows[8])

	styleOf := func(cell string) *excelize.Style {
		id, err := f.GetCellStyle(BalanceSheetName, cell)
		require.NoError(t, err)
		s, err := f.GetStyle(id)
		require.NoError(t, err)
		return s
	}
	assert.True(t, styleOf("A2").Font.Bold, "category is bold")
	assert.Equal(t, 1, styleOf("A3").Alignment.Indent)
	if font := styleOf("A4").Font; font != nil {
		assert.False(t, font.Bold, "leaf is not bold")
	}
	assert.Equal(t, 2, styleOf("A4").Alignment.Indent)
	assert.Equal(t, amountFormat, styleOf("B4").NumFmt)
}

func TestWriteBalanceSheet_BadPath(t *testing.T) {
	err := WriteBalanceSheet(filepath.Join(t.TempDir(), "missing", "x.xlsx"), nil, Meta{Currency: "USD"})
	require.Error(t, err)
}
