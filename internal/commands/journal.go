package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/controller"
	"github.com/beandash/beandash/internal/journal"
	"github.com/beandash/beandash/internal/journalapi"
	"github.com/beandash/beandash/internal/model"
)

func newJournalCommand(opts *rootOptions) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "List and edit ledger entries through the journal backend",
	}
	journalCmd.AddCommand(
		newJournalListCommand(opts),
		newJournalAddCommand(opts),
		newJournalDeleteCommand(opts),
	)
	return journalCmd
}

// withJournal runs fn against a journal controller wired to the backend
// and the ledger's account list.
func withJournal(ctx context.Context, opts *rootOptions, fn func(*controller.Journal) error) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	client, stop, err := a.journalBackend(ctx)
	if err != nil {
		return err
	}
	defer stop()

	accts := controller.NewAccounts(a.runner, a.cfg.Ledger.Currency, a.log)
	return fn(a.newJournal(client, accts))
}

func newJournalListCommand(opts *rootOptions) *cobra.Command {
	var f journalapi.EntryFilter
	var kinds []string
	var since, until string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range kinds {
				kind, err := model.ParseEntryKind(k)
				if err != nil {
					return err
				}
				f.Types = append(f.Types, kind)
			}
			var err error
			if f.StartDate, err = parseDate("since", since); err != nil {
				return err
			}
			if f.EndDate, err = parseDate("until", until); err != nil {
				return err
			}
			return withJournal(cmd.Context(), opts, func(c *controller.Journal) error {
				if err := c.SetFilter(cmd.Context(), f); err != nil {
					return err
				}
				return printJournal(cmd.OutOrStdout(), c.Store().Snapshot())
			})
		},
	}

	cmd.Flags().StringVar(&f.Account, "account", "", "only entries touching this account")
	cmd.Flags().StringVar(&f.Payee, "payee", "", "only transactions with this payee")
	cmd.Flags().StringVar(&f.Tag, "tag", "", "only transactions with this tag")
	cmd.Flags().StringVar(&f.Search, "search", "", "free text search")
	cmd.Flags().StringVar(&since, "since", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&until, "until", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "entry kinds (default transaction, balance, pad, note)")
	cmd.Flags().IntVar(&f.Limit, "limit", journalapi.DefaultPageSize, "page size")

	return cmd
}

func printJournal(w io.Writer, s controller.JournalState) error {
	for _, e := range s.Entries {
		text, err := journal.Render(e)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "; id %s\n%s\n\n", e.ID, text)
	}
	more := ""
	if s.HasMore {
		more = ", more available"
	}
	fmt.Fprintf(w, "%d of %d entries%s\n", len(s.Entries), s.TotalCount, more)
	return nil
}

func newJournalAddCommand(opts *rootOptions) *cobra.Command {
	var date, flag, payee, narration string
	var postings, tags []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Long: `Add a transaction. Each --posting is "Account [AMOUNT CURRENCY]"; one
posting may leave its amount empty to be interpolated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildTransaction(date, flag, payee, narration, postings, tags)
			if err != nil {
				return err
			}
			if dryRun {
				if err := journal.Check(e, nil); err != nil {
					return err
				}
				text, err := journal.Render(e)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			return withJournal(cmd.Context(), opts, func(c *controller.Journal) error {
				res, err := c.Add(cmd.Context(), e)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resultLine("Added transaction", res))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&flag, "flag", journal.DefaultFlag, "transaction flag")
	cmd.Flags().StringVar(&payee, "payee", "", "payee")
	cmd.Flags().StringVar(&narration, "narration", "", "narration")
	cmd.Flags().StringArrayVar(&postings, "posting", nil, `posting, "Account [AMOUNT CURRENCY]" (repeatable)`)
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the entry instead of sending it")

	return cmd
}

func buildTransaction(date, flag, payee, narration string, postings, tags []string) (model.Entry, error) {
	d := time.Now()
	if date != "" {
		t, err := parseDate("date", date)
		if err != nil {
			return model.Entry{}, err
		}
		d = t
	}
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	tx := &model.Transaction{Flag: flag, Payee: payee, Narration: narration, Tags: tags}
	for _, p := range postings {
		posting, err := parsePosting(p)
		if err != nil {
			return model.Entry{}, err
		}
		tx.Postings = append(tx.Postings, posting)
	}
	return model.Entry{Kind: model.KindTransaction, Date: d, Transaction: tx}, nil
}

// parsePosting reads "Account", or "Account AMOUNT CURRENCY".
func parsePosting(s string) (model.Posting, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return model.Posting{Account: fields[0]}, nil
	case 3:
		return model.Posting{Account: fields[0], Amount: fields[1], Currency: fields[2]}, nil
	default:
		return model.Posting{}, fmt.Errorf("posting %q: want \"Account [AMOUNT CURRENCY]\"", s)
	}
}

func newJournalDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd.Context(), opts, func(c *controller.Journal) error {
				res, err := c.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resultLine("Deleted "+args[0], res))
				return nil
			})
		},
	}
}

func resultLine(prefix string, res journalapi.Result) string {
	line := prefix
	if res.Message != "" {
		line += ": " + res.Message
	}
	if res.BackupFile != "" {
		line += " (backup " + res.BackupFile + ")"
	}
	return line
}
