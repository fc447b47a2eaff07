// Package journal validates journal entries and renders them as Beancount
// directives.
package journal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/model"
)

const dateFormat = "2006-01-02"

// internalMeta are keys the loader attaches to every directive.
var internalMeta = map[string]bool{"filename": true, "lineno": true}

// DefaultFlag marks a completed transaction.
const DefaultFlag = "*"

// Render formats an entry as Beancount text without a trailing newline.
func Render(e model.Entry) (string, error) {
	date := e.Date.Format(dateFormat)
	switch e.Kind {
	case model.KindTransaction:
		if e.Transaction == nil {
			return "", errNoPayload(e.Kind)
		}
		return renderTransaction(date, e.Metadata, e.Transaction), nil
	case model.KindBalance:
		if e.Balance == nil {
			return "", errNoPayload(e.Kind)
		}
		b := e.Balance
		line := fmt.Sprintf("%s balance %s %s %s", date, b.Account, b.Amount, b.Currency)
		if b.Tolerance != "" {
			line += fmt.Sprintf(" ~ %s %s", b.Tolerance, b.Currency)
		}
		return line, nil
	case model.KindPad:
		if e.Pad == nil {
			return "", errNoPayload(e.Kind)
		}
		return fmt.Sprintf("%s pad %s %s", date, e.Pad.Account, e.Pad.SourceAccount), nil
	case model.KindNote:
		if e.Note == nil {
			return "", errNoPayload(e.Kind)
		}
		return fmt.Sprintf("%s note %s %s", date, e.Note.Account, quote(e.Note.Comment)), nil
	case model.KindOpen:
		if e.Open == nil {
			return "", errNoPayload(e.Kind)
		}
		parts := []string{date, "open", e.Open.Account}
		if len(e.Open.Currencies) > 0 {
			parts = append(parts, strings.Join(e.Open.Currencies, ","))
		}
		if e.Open.Booking != "" {
			parts = append(parts, quote(e.Open.Booking))
		}
		return strings.Join(parts, " "), nil
	case model.KindClose:
		if e.Close == nil {
			return "", errNoPayload(e.Kind)
		}
		return fmt.Sprintf("%s close %s", date, e.Close.Account), nil
	default:
		return "", fmt.Errorf("unsupported entry type %q", e.Kind)
	}
}

func renderTransaction(date string, meta map[string]string, t *model.Transaction) string {
	flag := t.Flag
	if flag == "" {
		flag = DefaultFlag
	}

	header := []string{date, flag, payeeNarration(t.Payee, t.Narration)}
	for _, tag := range t.Tags {
		if tag = strings.TrimLeft(tag, "#"); tag != "" {
			header = append(header, "#"+tag)
		}
	}
	for _, link := range t.Links {
		if link = strings.TrimLeft(link, "^"); link != "" {
			header = append(header, "^"+link)
		}
	}

	lines := []string{strings.Join(header, " ")}
	lines = appendMetadata(lines, "  ", meta)
	for _, p := range t.Postings {
		lines = append(lines, renderPosting(p))
		lines = appendMetadata(lines, "    ", p.Metadata)
	}
	return strings.Join(lines, "\n")
}

func payeeNarration(payee, narration string) string {
	switch {
	case payee != "" && narration != "":
		return quote(payee) + " " + quote(narration)
	case payee != "":
		return quote(payee) + ` ""`
	case narration != "":
		return quote(narration)
	default:
		return `""`
	}
}

func renderPosting(p model.Posting) string {
	var b strings.Builder
	b.WriteString("  ")
	if p.Flag != "" {
		b.WriteString(p.Flag + " ")
	}
	b.WriteString(p.Account)

	if p.Amount != "" && p.Currency != "" {
		fmt.Fprintf(&b, "  %s %s", p.Amount, p.Currency)
		if c := p.Cost; c != nil {
			b.WriteString(renderCost(c))
		}
		if pr := p.Price; pr != nil && pr.Amount != "" && pr.Currency != "" {
			sym := "@"
			if pr.IsTotal {
				sym = "@@"
			}
			fmt.Fprintf(&b, " %s %s %s", sym, pr.Amount, pr.Currency)
		}
	}

	if p.Comment != "" {
		b.WriteString("  ; " + p.Comment)
	}
	return b.String()
}

func renderCost(c *model.Cost) string {
	switch {
	case c.Number != "" && c.Currency != "":
		open, closing := "{", "}"
		if c.IsTotal {
			open, closing = "{{", "}}"
		}
		s := " " + open + c.Number + " " + c.Currency
		if c.Date != "" {
			s += ", " + c.Date
		}
		if c.Label != "" {
			s += ", " + quote(c.Label)
		}
		return s + closing
	case c.Date != "":
		return " {" + c.Date + "}"
	case c.Label != "":
		return " {" + quote(c.Label) + "}"
	default:
		return ""
	}
}

// RenderCommodity formats a commodity declaration with its metadata in
// key order.
func RenderCommodity(date time.Time, symbol string, meta map[string]string) (string, error) {
	if symbol == "" {
		return "", errors.New("commodity symbol is required")
	}
	lines := []string{fmt.Sprintf("%s commodity %s", date.Format(dateFormat), symbol)}
	lines = appendMetadata(lines, "  ", meta)
	return strings.Join(lines, "\n"), nil
}

func appendMetadata(lines []string, indent string, meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if !internalMeta[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s%s: %s", indent, k, quote(meta[k])))
	}
	return lines
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func errNoPayload(k model.EntryKind) error {
	return fmt.Errorf("%s entry has no %s payload", k, k)
}
