package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountSeparator joins the segments of a beancount account name.
const AccountSeparator = ":"

// AllAccountsName is the display name of the synthetic tree root.
const AllAccountsName = "All Accounts"

// RootCategory is the first segment of a beancount account name.
type RootCategory string

const (
	RootAssets      RootCategory = "Assets"
	RootLiabilities RootCategory = "Liabilities"
	RootEquity      RootCategory = "Equity"
	RootIncome      RootCategory = "Income"
	RootExpenses    RootCategory = "Expenses"
)

// RootCategories lists the five beancount root categories in balance-sheet order.
var RootCategories = []RootCategory{RootAssets, RootLiabilities, RootEquity, RootIncome, RootExpenses}

// RootOf returns the root category of a full account name.
// "Assets:Bank:Checking" -> "Assets"
func RootOf(fullName string) RootCategory {
	root, _, _ := strings.Cut(fullName, AccountSeparator)
	return RootCategory(root)
}

// AccountNode is a node in the account display tree.
type AccountNode struct {
	Name     string         `json:"name"`
	FullName string         `json:"full_name,omitempty"` // empty only when IsRoot
	IsRoot   bool           `json:"is_root,omitempty"`   // synthetic "All Accounts" root
	Children []*AccountNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *AccountNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// AccountItem is a balance-sheet row: an account node carrying an amount.
type AccountItem struct {
	Name            string          `json:"name"`
	FullName        string          `json:"full_name"`
	Level           int             `json:"level"`
	Amount          string          `json:"amount"`           // display string, e.g. "150.00 USD"
	AmountNumber    decimal.Decimal `json:"amount_number"`    // value in the reporting currency (or summed units)
	OtherCurrencies string          `json:"other_currencies"` // newline-joined residual amounts
	IsCategory      bool            `json:"is_category"`
	Children        []*AccountItem  `json:"-"`
}
