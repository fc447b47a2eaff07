package beanquery

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/model"
)

const dateFormat = "2006-01-02"

// BalanceQuery selects per-account balances.
type BalanceQuery struct {
	Mode     model.ValuationMode
	Currency string
	Roots    []model.RootCategory // empty means all accounts
	AsOf     time.Time            // zero means the whole ledger
}

// String renders the BQL text.
func (q BalanceQuery) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT account, %s AS balance", positionExpr(q.Mode, q.Currency, "sum(position)"))
	if !q.AsOf.IsZero() {
		fmt.Fprintf(&b, " FROM CLOSE ON %s", q.AsOf.Format(dateFormat))
	}
	if len(q.Roots) > 0 {
		fmt.Fprintf(&b, " WHERE account ~ %s", quote(rootsPattern(q.Roots)))
	}
	b.WriteString(" GROUP BY account ORDER BY account")
	return b.String()
}

// AccountsQuery lists every account that has postings.
func AccountsQuery() string {
	return "SELECT DISTINCT account ORDER BY account"
}

// TotalQuery sums one root category in the reporting currency over an
// optional date range [From, To).
type TotalQuery struct {
	Root     model.RootCategory
	Mode     model.ValuationMode
	Currency string
	From     time.Time
	To       time.Time
}

// String renders the BQL text.
func (q TotalQuery) String() string {
	conds := []string{"account ~ " + quote(rootsPattern([]model.RootCategory{q.Root}))}
	if !q.From.IsZero() {
		conds = append(conds, "date >= "+q.From.Format(dateFormat))
	}
	if !q.To.IsZero() {
		conds = append(conds, "date < "+q.To.Format(dateFormat))
	}
	return fmt.Sprintf("SELECT %s AS total WHERE %s",
		positionExpr(q.Mode, q.Currency, "sum(position)"), strings.Join(conds, " AND "))
}

// TransactionsQuery lists postings newest first.
type TransactionsQuery struct {
	Account string // regular expression; empty matches all
	Since   time.Time
	Until   time.Time
	Limit   int
}

// String renders the BQL text.
func (q TransactionsQuery) String() string {
	var b strings.Builder
	b.WriteString("SELECT date, flag, payee, narration, account, position")
	var conds []string
	if q.Account != "" {
		conds = append(conds, "account ~ "+quote(q.Account))
	}
	if !q.Since.IsZero() {
		conds = append(conds, "date >= "+q.Since.Format(dateFormat))
	}
	if !q.Until.IsZero() {
		conds = append(conds, "date <= "+q.Until.Format(dateFormat))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY date DESC")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// FirstDateQuery selects the earliest posting date in the ledger.
func FirstDateQuery() string {
	return "SELECT min(date) AS first"
}

// CommoditiesQuery lists held commodities with total units and their
// latest price in the reporting currency.
func CommoditiesQuery(currency string) string {
	return fmt.Sprintf("SELECT currency, units(sum(position)) AS units, getprice(currency, %s) AS price GROUP BY currency ORDER BY currency",
		quote(currency))
}

func positionExpr(mode model.ValuationMode, currency, inner string) string {
	switch mode {
	case model.ValuationCost:
		return "cost(" + inner + ")"
	case model.ValuationUnits:
		return "units(" + inner + ")"
	default:
		return "convert(" + inner + ", " + quote(currency) + ")"
	}
}

func rootsPattern(roots []model.RootCategory) string {
	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = regexp.QuoteMeta(string(r))
	}
	return "^(" + strings.Join(parts, "|") + ")(:|$)"
}

// quote renders a single-quoted BQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
