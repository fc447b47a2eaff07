package balance

import (
	"github.com/shopspring/decimal"

	"github.com/beandash/beandash/internal/amount"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/querycsv"
)

// Sheet is an aggregated balance sheet.
type Sheet struct {
	Options  Options
	Forest   []*model.AccountItem
	Rows     []*model.AccountItem // pre-order, for table rendering
	Sections map[model.RootCategory]*model.AccountItem
	NetWorth decimal.Decimal
}

// NewSheet aggregates rows into a Sheet. Net worth is assets plus
// liabilities, since beancount records liabilities as negative balances.
func NewSheet(rows []querycsv.Row, opts Options) *Sheet {
	forest := Build(rows, opts)
	s := &Sheet{
		Options:  opts,
		Forest:   forest,
		Rows:     Flatten(forest),
		Sections: make(map[model.RootCategory]*model.AccountItem),
	}
	for _, item := range forest {
		s.Sections[model.RootCategory(item.Name)] = item
	}
	s.NetWorth = s.Total(model.RootAssets).Add(s.Total(model.RootLiabilities))
	return s
}

// Total returns the aggregated number of a root category, zero if absent.
func (s *Sheet) Total(root model.RootCategory) decimal.Decimal {
	if item, ok := s.Sections[root]; ok {
		return item.AmountNumber
	}
	return decimal.Zero
}

// NetWorthString formats the net worth for display.
func (s *Sheet) NetWorthString() string {
	return amount.FormatForMode(s.NetWorth, s.Options.ReportingCurrency, s.Options.Mode)
}

// Unconverted lists the leaves that hold currencies which could not be
// converted to the reporting currency.
func (s *Sheet) Unconverted() []*model.AccountItem {
	if s.Options.Mode == model.ValuationUnits {
		return nil
	}
	var out []*model.AccountItem
	for _, item := range s.Rows {
		if !item.IsCategory && item.OtherCurrencies != "" {
			out = append(out, item)
		}
	}
	return out
}
