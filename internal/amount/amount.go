// Package amount parses and formats the "<number> <currency>" cells that
// bean-query prints for inventories.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beandash/beandash/internal/model"
)

// UnitsLabel replaces the currency in units valuation mode.
const UnitsLabel = "units"

// Parse splits "123.45 USD" into number and currency. Malformed input
// yields a zero amount with an empty currency.
func Parse(s string) model.ParsedAmount {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return model.ParsedAmount{}
	}
	n, err := decimal.NewFromString(fields[0])
	if err != nil {
		return model.ParsedAmount{}
	}
	return model.ParsedAmount{Amount: n, Currency: fields[1]}
}

// Split breaks a comma-joined inventory cell into its trimmed, non-empty entries.
func Split(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExtractConvertedAmount returns the entry of raw denominated in the
// reporting currency. The first match wins; when none matches the result
// is "0.00 <currency>".
func ExtractConvertedAmount(raw, reportingCurrency string) string {
	for _, part := range Split(raw) {
		if Parse(part).Currency == reportingCurrency {
			return part
		}
	}
	return Format(decimal.Zero, reportingCurrency)
}

// ExtractNonReportingCurrencies returns the entries of raw that are not in
// the reporting currency, newline-joined. Unparseable entries are dropped.
func ExtractNonReportingCurrencies(raw, reportingCurrency string) string {
	var rest []string
	for _, part := range Split(raw) {
		cur := Parse(part).Currency
		if cur == "" || cur == reportingCurrency {
			continue
		}
		rest = append(rest, part)
	}
	return strings.Join(rest, "\n")
}

// Format renders a number with two decimals followed by the currency.
func Format(n decimal.Decimal, currency string) string {
	return n.StringFixed(2) + " " + currency
}

// FormatForMode formats a category total. Units mode has no single
// currency, so the total is labelled "units".
func FormatForMode(n decimal.Decimal, reportingCurrency string, mode model.ValuationMode) string {
	if mode == model.ValuationUnits {
		return Format(n, UnitsLabel)
	}
	return Format(n, reportingCurrency)
}

// MergeLines unions newline-joined residual lists, keeping first-seen order
// and dropping duplicates and blanks.
func MergeLines(lists ...string) string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, line := range strings.Split(list, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
