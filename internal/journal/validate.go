package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beandash/beandash/internal/model"
)

// MinPostings is the fewest postings a transaction may have.
const MinPostings = 2

// ValidationError describes a single problem with an entry.
type ValidationError struct {
	EntryID     string
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	id := e.EntryID
	if id == "" {
		id = "new"
	}
	return fmt.Sprintf("%s [%s]: %s", e.Field, id, e.Description)
}

// ValidationErrors is every problem found in one entry.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Check is Validate returning a ValidationErrors error, or nil.
func Check(e model.Entry, accounts AccountChecker) error {
	if errs := Validate(e, accounts); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

// AccountChecker tests whether an account name exists in the ledger.
type AccountChecker interface {
	Exists(name string) bool
}

// Validate checks an entry before it is sent to the backend. accounts may
// be nil to skip the account existence check.
func Validate(e model.Entry, accounts AccountChecker) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{EntryID: e.ID, Field: field, Description: fmt.Sprintf(format, args...)})
	}
	checkAccount := func(field, name string) {
		if name == "" {
			add(field, "required")
			return
		}
		if accounts != nil && !accounts.Exists(name) {
			add(field, "unknown account %q", name)
		}
	}
	checkNumber := func(field, s string) {
		if s == "" {
			return
		}
		if _, err := decimal.NewFromString(s); err != nil {
			add(field, "%q is not a number", s)
		}
	}

	if e.Date.IsZero() {
		add("date", "required")
	}

	switch e.Kind {
	case model.KindTransaction:
		if e.Transaction == nil {
			add("postings", "at least %d postings are required", MinPostings)
			break
		}
		if len(e.Transaction.Postings) < MinPostings {
			add("postings", "at least %d postings are required", MinPostings)
		}
		for i, p := range e.Transaction.Postings {
			field := fmt.Sprintf("postings[%d]", i+1)
			if p.Account == "" {
				add(field+".account", "posting %d missing account", i+1)
			} else {
				checkAccount(field+".account", p.Account)
			}
			checkNumber(field+".amount", p.Amount)
			if p.Amount != "" && p.Currency == "" {
				add(field+".currency", "required with an amount")
			}
			if p.Cost != nil {
				checkNumber(field+".cost.number", p.Cost.Number)
			}
			if p.Price != nil {
				checkNumber(field+".price.amount", p.Price.Amount)
			}
		}
	case model.KindBalance:
		if e.Balance == nil {
			add("account", "required")
			break
		}
		checkAccount("account", e.Balance.Account)
		if e.Balance.Amount == "" {
			add("amount", "required")
		}
		checkNumber("amount", e.Balance.Amount)
		if e.Balance.Currency == "" {
			add("currency", "required")
		}
		checkNumber("tolerance", e.Balance.Tolerance)
	case model.KindPad:
		if e.Pad == nil {
			add("account", "required")
			break
		}
		checkAccount("account", e.Pad.Account)
		checkAccount("source_account", e.Pad.SourceAccount)
	case model.KindNote:
		if e.Note == nil {
			add("account", "required")
			break
		}
		checkAccount("account", e.Note.Account)
		if e.Note.Comment == "" {
			add("comment", "required")
		}
	case model.KindOpen:
		if e.Open == nil || e.Open.Account == "" {
			add("account", "required")
		}
	case model.KindClose:
		if e.Close == nil {
			add("account", "required")
			break
		}
		checkAccount("account", e.Close.Account)
	default:
		add("type", "unsupported entry type %q", e.Kind)
	}
	return errs
}
