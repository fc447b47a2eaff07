package model

import (
	"fmt"
	"time"
)

// EntryKind discriminates the journal entry variants.
type EntryKind string

const (
	KindTransaction EntryKind = "transaction"
	KindBalance     EntryKind = "balance"
	KindPad         EntryKind = "pad"
	KindNote        EntryKind = "note"
	KindOpen        EntryKind = "open"
	KindClose       EntryKind = "close"
)

// JournalKinds are the kinds listed by the journal view by default.
var JournalKinds = []EntryKind{KindTransaction, KindBalance, KindPad, KindNote}

// WritableKinds are the kinds the journal backend can create and update.
var WritableKinds = []EntryKind{KindTransaction, KindBalance, KindNote}

// ParseEntryKind validates a kind string.
func ParseEntryKind(s string) (EntryKind, error) {
	switch k := EntryKind(s); k {
	case KindTransaction, KindBalance, KindPad, KindNote, KindOpen, KindClose:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported entry type %q", s)
	}
}

// Entry is a journal directive. Exactly one payload matching Kind is set.
type Entry struct {
	ID       string            `json:"id,omitempty"`
	Kind     EntryKind         `json:"kind"`
	Date     time.Time         `json:"date"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Transaction *Transaction `json:"transaction,omitempty"`
	Balance     *Balance     `json:"balance,omitempty"`
	Pad         *Pad         `json:"pad,omitempty"`
	Note        *Note        `json:"note,omitempty"`
	Open        *Open        `json:"open,omitempty"`
	Close       *Close       `json:"close,omitempty"`
}

// Account returns the primary account of the entry. For transactions this is
// the first posting's account.
func (e Entry) Account() string {
	switch e.Kind {
	case KindTransaction:
		if e.Transaction != nil && len(e.Transaction.Postings) > 0 {
			return e.Transaction.Postings[0].Account
		}
	case KindBalance:
		if e.Balance != nil {
			return e.Balance.Account
		}
	case KindPad:
		if e.Pad != nil {
			return e.Pad.Account
		}
	case KindNote:
		if e.Note != nil {
			return e.Note.Account
		}
	case KindOpen:
		if e.Open != nil {
			return e.Open.Account
		}
	case KindClose:
		if e.Close != nil {
			return e.Close.Account
		}
	}
	return ""
}

// Transaction is the payload of a transaction entry.
type Transaction struct {
	Flag      string    `json:"flag,omitempty"`
	Payee     string    `json:"payee,omitempty"`
	Narration string    `json:"narration"`
	Tags      []string  `json:"tags,omitempty"`
	Links     []string  `json:"links,omitempty"`
	Postings  []Posting `json:"postings"`
}

// Posting is one leg of a transaction.
type Posting struct {
	Account  string            `json:"account"`
	Amount   string            `json:"amount,omitempty"` // empty when the amount is interpolated
	Currency string            `json:"currency,omitempty"`
	Flag     string            `json:"flag,omitempty"`
	Comment  string            `json:"comment,omitempty"`
	Cost     *Cost             `json:"cost,omitempty"`
	Price    *Price            `json:"price,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Cost is a lot cost annotation: {number currency, date, "label"}.
type Cost struct {
	Number   string `json:"number,omitempty"`
	Currency string `json:"currency,omitempty"`
	Date     string `json:"date,omitempty"`
	Label    string `json:"label,omitempty"`
	IsTotal  bool   `json:"is_total,omitempty"` // {{...}}
}

// Price is a price annotation: @ amount currency.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	IsTotal  bool   `json:"is_total,omitempty"` // @@
}

// Balance is a balance assertion.
type Balance struct {
	Account    string `json:"account"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Tolerance  string `json:"tolerance,omitempty"`
	DiffAmount string `json:"diff_amount,omitempty"` // set by the backend when the assertion fails
}

// Pad inserts a padding transaction from SourceAccount into Account.
type Pad struct {
	Account       string `json:"account"`
	SourceAccount string `json:"source_account"`
}

// Note attaches a comment to an account.
type Note struct {
	Account string `json:"account"`
	Comment string `json:"comment"`
}

// Open declares an account.
type Open struct {
	Account    string   `json:"account"`
	Currencies []string `json:"currencies,omitempty"`
	Booking    string   `json:"booking,omitempty"`
}

// Close retires an account.
type Close struct {
	Account string `json:"account"`
}
