package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/controller"
)

func newCommoditiesCommand(opts *rootOptions) *cobra.Command {
	var declare, logo, priceSource, date string

	cmd := &cobra.Command{
		Use:   "commodities",
		Short: "List held commodities, or print a commodity declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if declare != "" {
				return runDeclare(cmd.Context(), opts, cmd.OutOrStdout(), declare, date, logo, priceSource)
			}
			return runCommodities(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&declare, "declare", "", "print a declaration for this symbol instead of listing")
	cmd.Flags().StringVar(&logo, "logo", "", "logo URL metadata for --declare")
	cmd.Flags().StringVar(&priceSource, "price-source", "", `price source metadata for --declare, e.g. "yahoo: VTI"`)
	cmd.Flags().StringVar(&date, "date", "", "declaration date, YYYY-MM-DD (default the ledger's first date, else today)")

	return cmd
}

func runCommodities(ctx context.Context, opts *rootOptions, w io.Writer) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	c := controller.NewCommodities(a.runner, a.cfg.Ledger.Currency, a.log)
	if err := c.Load(ctx); err != nil {
		return err
	}
	for _, cm := range c.Store().Snapshot().Commodities {
		price := cm.Price
		if price == "" {
			price = "-"
		}
		fmt.Fprintf(w, "%-10s %20s %20s\n", cm.Symbol, cm.Units, price)
	}
	return nil
}

// runDeclare validates and renders a declaration. Without --date it uses
// the ledger's first date when a ledger is configured, else today.
func runDeclare(ctx context.Context, opts *rootOptions, w io.Writer, symbol, date, logo, priceSource string) error {
	d, err := parseDate("date", date)
	if err != nil {
		return err
	}
	if d.IsZero() {
		d = declarationDate(ctx, opts)
	}
	c := controller.NewCommodities(nil, "", nil)
	text, err := c.Declaration(d, symbol, logo, priceSource)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}

func declarationDate(ctx context.Context, opts *rootOptions) time.Time {
	a, err := opts.open()
	if err != nil {
		slog.Debug("no ledger for declaration date", "error", err)
		return time.Now()
	}
	defer a.Close()

	first, err := controller.NewCommodities(a.runner, a.cfg.Ledger.Currency, a.log).FirstDate(ctx)
	if err != nil || first.IsZero() {
		a.log.Debug("ledger first date unavailable", "error", err)
		return time.Now()
	}
	return first
}
