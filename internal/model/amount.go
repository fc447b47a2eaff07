package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParsedAmount is a number with its commodity, split from "123.45 USD".
type ParsedAmount struct {
	Amount   decimal.Decimal
	Currency string
}

// String formats the amount with two decimal places.
func (p ParsedAmount) String() string {
	return p.Amount.StringFixed(2) + " " + p.Currency
}

// ValuationMode selects how positions are valued in balance queries.
type ValuationMode string

const (
	ValuationConvert ValuationMode = "convert" // market value in the reporting currency
	ValuationCost    ValuationMode = "cost"    // book value
	ValuationUnits   ValuationMode = "units"   // raw units, no conversion
)

// ParseValuationMode validates a mode string. An empty string means convert.
func ParseValuationMode(s string) (ValuationMode, error) {
	switch ValuationMode(s) {
	case "":
		return ValuationConvert, nil
	case ValuationConvert, ValuationCost, ValuationUnits:
		return ValuationMode(s), nil
	default:
		return "", fmt.Errorf("unknown valuation mode %q (want convert, cost or units)", s)
	}
}
