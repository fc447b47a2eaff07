package journalapi

import (
	"fmt"
	"time"

	"github.com/beandash/beandash/internal/model"
)

const dateFormat = "2006-01-02"

// wireEntry is the flat JSON shape the backend uses for every entry type.
type wireEntry struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Date     string         `json:"date"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Flag      string        `json:"flag,omitempty"`
	Payee     string        `json:"payee,omitempty"`
	Narration *string       `json:"narration,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	Links     []string      `json:"links,omitempty"`
	Postings  []wirePosting `json:"postings,omitempty"`

	Account       string   `json:"account,omitempty"`
	Amount        string   `json:"amount,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Tolerance     string   `json:"tolerance,omitempty"`
	DiffAmount    string   `json:"diff_amount,omitempty"`
	Comment       string   `json:"comment,omitempty"`
	SourceAccount string   `json:"source_account,omitempty"`
	Currencies    []string `json:"currencies,omitempty"`
	Booking       string   `json:"booking,omitempty"`
}

type wirePosting struct {
	Account  string            `json:"account"`
	Amount   string            `json:"amount,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Price    *wirePrice        `json:"price,omitempty"`
	Cost     *wireCost         `json:"cost,omitempty"`
	Flag     string            `json:"flag,omitempty"`
	Comment  string            `json:"comment,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type wirePrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	IsTotal  bool   `json:"isTotal,omitempty"`
}

type wireCost struct {
	Number   string `json:"number,omitempty"`
	Currency string `json:"currency,omitempty"`
	Date     string `json:"date,omitempty"`
	Label    string `json:"label,omitempty"`
	IsTotal  bool   `json:"isTotal,omitempty"`
}

func toEntry(w wireEntry) (model.Entry, error) {
	kind, err := model.ParseEntryKind(w.Type)
	if err != nil {
		return model.Entry{}, err
	}
	date, err := time.Parse(dateFormat, w.Date)
	if err != nil {
		return model.Entry{}, fmt.Errorf("entry %s: parsing date %q: %w", w.ID, w.Date, err)
	}

	e := model.Entry{ID: w.ID, Kind: kind, Date: date, Metadata: stringMap(w.Metadata)}
	switch kind {
	case model.KindTransaction:
		t := &model.Transaction{
			Flag:  w.Flag,
			Payee: w.Payee,
			Tags:  w.Tags,
			Links: w.Links,
		}
		if w.Narration != nil {
			t.Narration = *w.Narration
		}
		for _, p := range w.Postings {
			t.Postings = append(t.Postings, toPosting(p))
		}
		e.Transaction = t
	case model.KindBalance:
		e.Balance = &model.Balance{
			Account:    w.Account,
			Amount:     w.Amount,
			Currency:   w.Currency,
			Tolerance:  w.Tolerance,
			DiffAmount: w.DiffAmount,
		}
	case model.KindPad:
		e.Pad = &model.Pad{Account: w.Account, SourceAccount: w.SourceAccount}
	case model.KindNote:
		e.Note = &model.Note{Account: w.Account, Comment: w.Comment}
	case model.KindOpen:
		e.Open = &model.Open{Account: w.Account, Currencies: w.Currencies, Booking: w.Booking}
	case model.KindClose:
		e.Close = &model.Close{Account: w.Account}
	default:
		return model.Entry{}, fmt.Errorf("unsupported entry type %q", w.Type)
	}
	return e, nil
}

func toPosting(p wirePosting) model.Posting {
	mp := model.Posting{
		Account:  p.Account,
		Amount:   p.Amount,
		Currency: p.Currency,
		Flag:     p.Flag,
		Comment:  p.Comment,
		Metadata: p.Metadata,
	}
	if p.Price != nil {
		mp.Price = &model.Price{Amount: p.Price.Amount, Currency: p.Price.Currency, IsTotal: p.Price.IsTotal}
	}
	if p.Cost != nil {
		mp.Cost = &model.Cost{
			Number:   p.Cost.Number,
			Currency: p.Cost.Currency,
			Date:     p.Cost.Date,
			Label:    p.Cost.Label,
			IsTotal:  p.Cost.IsTotal,
		}
	}
	return mp
}

func fromEntry(e model.Entry) (wireEntry, error) {
	w := wireEntry{ID: e.ID, Type: string(e.Kind), Date: e.Date.Format(dateFormat)}
	if len(e.Metadata) > 0 {
		w.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			w.Metadata[k] = v
		}
	}

	switch e.Kind {
	case model.KindTransaction:
		if e.Transaction == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		t := e.Transaction
		narration := t.Narration
		w.Flag = t.Flag
		w.Payee = t.Payee
		w.Narration = &narration
		w.Tags = t.Tags
		w.Links = t.Links
		for _, p := range t.Postings {
			w.Postings = append(w.Postings, fromPosting(p))
		}
	case model.KindBalance:
		if e.Balance == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		w.Account = e.Balance.Account
		w.Amount = e.Balance.Amount
		w.Currency = e.Balance.Currency
		w.Tolerance = e.Balance.Tolerance
	case model.KindPad:
		if e.Pad == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		w.Account = e.Pad.Account
		w.SourceAccount = e.Pad.SourceAccount
	case model.KindNote:
		if e.Note == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		w.Account = e.Note.Account
		w.Comment = e.Note.Comment
	case model.KindOpen:
		if e.Open == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		w.Account = e.Open.Account
		w.Currencies = e.Open.Currencies
		w.Booking = e.Open.Booking
	case model.KindClose:
		if e.Close == nil {
			return wireEntry{}, errMissingPayload(e.Kind)
		}
		w.Account = e.Close.Account
	default:
		return wireEntry{}, fmt.Errorf("unsupported entry type %q", e.Kind)
	}
	return w, nil
}

func fromPosting(p model.Posting) wirePosting {
	wp := wirePosting{
		Account:  p.Account,
		Amount:   p.Amount,
		Currency: p.Currency,
		Flag:     p.Flag,
		Comment:  p.Comment,
		Metadata: p.Metadata,
	}
	if p.Price != nil {
		wp.Price = &wirePrice{Amount: p.Price.Amount, Currency: p.Price.Currency, IsTotal: p.Price.IsTotal}
	}
	if p.Cost != nil {
		wp.Cost = &wireCost{
			Number:   p.Cost.Number,
			Currency: p.Cost.Currency,
			Date:     p.Cost.Date,
			Label:    p.Cost.Label,
			IsTotal:  p.Cost.IsTotal,
		}
	}
	return wp
}

func errMissingPayload(k model.EntryKind) error {
	return fmt.Errorf("%s entry has no %s payload", k, k)
}

// stringMap flattens JSON metadata values; the backend sends strings,
// numbers, booleans and nulls.
func stringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
