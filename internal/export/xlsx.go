// Package export writes views to spreadsheet files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/beandash/beandash/internal/model"
)

// BalanceSheetName is the worksheet written by WriteBalanceSheet.
const BalanceSheetName = "Balance Sheet"

// amountFormat is excelize's built-in "#,##0.00".
const amountFormat = 4

// Header is the first row of the balance sheet.
var Header = []string{"Account", "Amount", "Other Currencies"}

// Meta describes how the balance sheet was computed.
type Meta struct {
	Currency  string
	Mode      model.ValuationMode
	NetWorth  decimal.Decimal
	Generated time.Time
}

type styleKey struct {
	bold   bool
	indent int
	number bool
}

type sheetWriter struct {
	f      *excelize.File
	styles map[styleKey]int
}

// WriteBalanceSheet writes items (pre-order) to a new workbook at path.
// Names are indented by level, categories are bold and amounts are numbers.
func WriteBalanceSheet(path string, items []*model.AccountItem, meta Meta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), BalanceSheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	w := &sheetWriter{f: f, styles: make(map[styleKey]int)}

	for i, h := range Header {
		if err := w.set(i+1, 1, h, styleKey{bold: true}); err != nil {
			return err
		}
	}

	row := 2
	for _, item := range items {
		if err := w.set(1, row, item.Name, styleKey{bold: item.IsCategory, indent: item.Level}); err != nil {
			return err
		}
		if err := w.set(2, row, item.AmountNumber.InexactFloat64(), styleKey{bold: item.IsCategory, number: true}); err != nil {
			return err
		}
		if item.OtherCurrencies != "" {
			others := strings.ReplaceAll(item.OtherCurrencies, "\n", ", ")
			if err := w.set(3, row, others, styleKey{}); err != nil {
				return err
			}
		}
		row++
	}

	row++
	if err := w.set(1, row, "Net Worth ("+meta.Currency+")", styleKey{bold: true}); err != nil {
		return err
	}
	if err := w.set(2, row, meta.NetWorth.InexactFloat64(), styleKey{bold: true, number: true}); err != nil {
		return err
	}
	if meta.Mode != "" {
		row++
		if err := w.set(1, row, "Valuation", styleKey{}); err != nil {
			return err
		}
		if err := w.set(2, row, string(meta.Mode), styleKey{}); err != nil {
			return err
		}
	}
	if !meta.Generated.IsZero() {
		row++
		if err := w.set(1, row, "Generated", styleKey{}); err != nil {
			return err
		}
		if err := w.set(2, row, meta.Generated.Format(time.RFC3339), styleKey{}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(BalanceSheetName, "A", "A", 40); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(BalanceSheetName, "B", "C", 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func (w *sheetWriter) set(col, row int, v any, key styleKey) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.f.SetCellValue(BalanceSheetName, cell, v); err != nil {
		return fmt.Errorf("writing %s: %w", cell, err)
	}
	if key == (styleKey{}) {
		return nil
	}
	id, err := w.style(key)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(BalanceSheetName, cell, cell, id); err != nil {
		return fmt.Errorf("styling %s: %w", cell, err)
	}
	return nil
}

func (w *sheetWriter) style(key styleKey) (int, error) {
	if id, ok := w.styles[key]; ok {
		return id, nil
	}
	s := &excelize.Style{}
	if key.bold {
		s.Font = &excelize.Font{Bold: true}
	}
	if key.indent > 0 {
		s.Alignment = &excelize.Alignment{Horizontal: "left", Indent: key.indent}
	}
	if key.number {
		s.NumFmt = amountFormat
	}
	id, err := w.f.NewStyle(s)
	if err != nil {
		return 0, fmt.Errorf("creating style: %w", err)
	}
	w.styles[key] = id
	return id, nil
}
