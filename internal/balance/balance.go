// Package balance turns account balance rows into an aggregated account
// hierarchy for the balance sheet and accounts views.
package balance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beandash/beandash/internal/accounts"
	"github.com/beandash/beandash/internal/amount"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/querycsv"
)

// Options controls how amounts are extracted and formatted.
type Options struct {
	ReportingCurrency string
	Mode              model.ValuationMode
}

// BuildItems builds the item forest from balance rows. Only leaves carry
// amounts; call Aggregate to fill in categories.
func BuildItems(rows []querycsv.Row, opts Options) []*model.AccountItem {
	leaves := make(map[string]querycsv.Row, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if prev, ok := leaves[r.Account]; ok {
			r.Cells = append(prev.Cells, r.Cells...)
		} else {
			names = append(names, r.Account)
		}
		leaves[r.Account] = r
	}

	var convert func(n *model.AccountNode, level int) *model.AccountItem
	convert = func(n *model.AccountNode, level int) *model.AccountItem {
		item := &model.AccountItem{
			Name:     n.Name,
			FullName: n.FullName,
			Level:    level,
		}
		if row, ok := leaves[n.FullName]; ok {
			fillLeaf(item, row.Raw(), opts)
		} else {
			item.Amount = amount.FormatForMode(decimal.Zero, opts.ReportingCurrency, opts.Mode)
		}
		for _, c := range n.Children {
			item.Children = append(item.Children, convert(c, level+1))
		}
		item.IsCategory = len(item.Children) > 0
		return item
	}

	forest := accounts.BuildTree(names)
	items := make([]*model.AccountItem, 0, len(forest))
	for _, n := range forest {
		items = append(items, convert(n, 0))
	}
	return items
}

func fillLeaf(item *model.AccountItem, raw string, opts Options) {
	if opts.Mode == model.ValuationUnits {
		total := decimal.Zero
		var lines []string
		for _, part := range amount.Split(raw) {
			p := amount.Parse(part)
			if p.Currency == "" {
				continue
			}
			total = total.Add(p.Amount)
			lines = append(lines, part)
		}
		item.AmountNumber = total
		item.Amount = amount.FormatForMode(total, opts.ReportingCurrency, opts.Mode)
		item.OtherCurrencies = strings.Join(lines, "\n")
		return
	}

	item.Amount = amount.ExtractConvertedAmount(raw, opts.ReportingCurrency)
	item.AmountNumber = amount.Parse(item.Amount).Amount
	item.OtherCurrencies = amount.ExtractNonReportingCurrencies(raw, opts.ReportingCurrency)
}

// Aggregate computes category totals bottom-up. A category's number is the
// sum of its children's numbers and its residual currencies are the
// de-duplicated union of theirs. Leaves keep their own values.
func Aggregate(forest []*model.AccountItem, opts Options) {
	for _, item := range forest {
		aggregate(item, opts)
	}
}

func aggregate(item *model.AccountItem, opts Options) decimal.Decimal {
	if len(item.Children) == 0 {
		item.IsCategory = false
		return item.AmountNumber
	}

	total := decimal.Zero
	others := make([]string, 0, len(item.Children))
	for _, c := range item.Children {
		total = total.Add(aggregate(c, opts))
		others = append(others, c.OtherCurrencies)
	}

	item.IsCategory = true
	item.AmountNumber = total
	item.Amount = amount.FormatForMode(total, opts.ReportingCurrency, opts.Mode)
	item.OtherCurrencies = amount.MergeLines(others...)
	return total
}

// Flatten lists the forest in pre-order: each parent is immediately
// followed by its descendants, before its next sibling.
func Flatten(forest []*model.AccountItem) []*model.AccountItem {
	var out []*model.AccountItem
	var visit func(item *model.AccountItem)
	visit = func(item *model.AccountItem) {
		out = append(out, item)
		for _, c := range item.Children {
			visit(c)
		}
	}
	for _, item := range forest {
		visit(item)
	}
	return out
}

// Build runs BuildItems followed by Aggregate.
func Build(rows []querycsv.Row, opts Options) []*model.AccountItem {
	items := BuildItems(rows, opts)
	Aggregate(items, opts)
	return items
}
