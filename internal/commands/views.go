package commands

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/accounts"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/controller"
	"github.com/beandash/beandash/internal/export"
	"github.com/beandash/beandash/internal/model"
)

const dateFormat = "2006-01-02"

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	var mode, currency string
	var roots []string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(cmd.Context(), opts, cmd.OutOrStdout(), mode, currency, roots)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "valuation mode: convert, cost or units (default from config)")
	cmd.Flags().StringVar(&currency, "currency", "", "reporting currency (default from config)")
	cmd.Flags().StringSliceVar(&roots, "root", nil, "only show these root categories")

	return cmd
}

// loadBalanceSheet loads the balance sheet with flag overrides applied.
func loadBalanceSheet(ctx context.Context, a *app, modeFlag, currency string) (controller.BalanceSheetState, error) {
	mode := a.valuation()
	if modeFlag != "" {
		m, err := model.ParseValuationMode(modeFlag)
		if err != nil {
			return controller.BalanceSheetState{}, err
		}
		mode = m
	}
	if currency == "" {
		currency = a.cfg.Ledger.Currency
	}

	c := controller.NewBalanceSheet(a.runner, currency, mode, a.log)
	if err := c.Load(ctx); err != nil {
		return controller.BalanceSheetState{}, err
	}
	return c.Store().Snapshot(), nil
}

func runBalance(ctx context.Context, opts *rootOptions, w io.Writer, mode, currency string, roots []string) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := loadBalanceSheet(ctx, a, mode, currency)
	if err != nil {
		return err
	}

	items := s.Items
	if len(roots) > 0 {
		items = nil
		for _, item := range s.Items {
			if slices.Contains(roots, string(model.RootOf(item.FullName))) {
				items = append(items, item)
			}
		}
	}
	printItems(w, items)

	fmt.Fprintf(w, "\nNet worth: %s\n", s.NetWorth)
	if len(s.Unconverted) > 0 {
		fmt.Fprintf(w, "Not converted to %s: %s\n", s.Currency, strings.Join(s.Unconverted, ", "))
	}
	return nil
}

func printItems(w io.Writer, items []*model.AccountItem) {
	width := 0
	for _, item := range items {
		width = max(width, 2*item.Level+len(item.Name))
	}
	for _, item := range items {
		name := strings.Repeat("  ", item.Level) + item.Name
		line := fmt.Sprintf("%-*s  %16s", width, name, item.Amount)
		if item.OtherCurrencies != "" {
			line += "  " + strings.ReplaceAll(item.OtherCurrencies, "\n", ", ")
		}
		fmt.Fprintln(w, line)
	}
}

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	var tree bool
	var match string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccounts(cmd.Context(), opts, cmd.OutOrStdout(), tree, match)
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "show the account hierarchy with balances")
	cmd.Flags().StringVar(&match, "match", "", "only list accounts containing this text")

	return cmd
}

func runAccounts(ctx context.Context, opts *rootOptions, w io.Writer, tree bool, match string) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	c := controller.NewAccounts(a.runner, a.cfg.Ledger.Currency, a.log)
	if !tree {
		names, err := c.Suggest(ctx, match)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	}

	if err := c.Load(ctx); err != nil {
		return err
	}
	s := c.Store().Snapshot()
	fmt.Fprintf(w, "%s (%d)\n", s.Root.Name, s.Count)
	accounts.Walk(s.Root.Children, func(n *model.AccountNode, depth int) {
		line := strings.Repeat("  ", depth+1) + n.Name
		if bal, ok := s.Balances[n.FullName]; ok && n.IsLeaf() {
			line += "  " + bal
		}
		fmt.Fprintln(w, line)
	})
	return nil
}

func newOverviewCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show net worth, income, expenses and savings rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverview(cmd.Context(), opts, cmd.OutOrStdout(), from, to)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "period start, YYYY-MM-DD (default January 1st)")
	cmd.Flags().StringVar(&to, "to", "", "period end, exclusive, YYYY-MM-DD")

	return cmd
}

func runOverview(ctx context.Context, opts *rootOptions, w io.Writer, fromFlag, toFlag string) error {
	from, err := parseDate("from", fromFlag)
	if err != nil {
		return err
	}
	to, err := parseDate("to", toFlag)
	if err != nil {
		return err
	}

	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	c := controller.NewOverview(a.runner, a.cfg.Ledger.Currency, a.log)
	if from.IsZero() && to.IsZero() {
		err = c.Load(ctx)
	} else {
		err = c.LoadPeriod(ctx, from, to)
	}
	if err != nil {
		return err
	}

	s := c.Store().Snapshot()
	period := "from " + s.From.Format(dateFormat)
	if s.From.IsZero() {
		period = "all time"
	}
	if !s.To.IsZero() {
		period += " to " + s.To.Format(dateFormat)
	}
	fmt.Fprintf(w, "Net worth     %16s\n", s.Format(s.NetWorth))
	fmt.Fprintf(w, "  Assets      %16s\n", s.Format(s.Assets))
	fmt.Fprintf(w, "  Liabilities %16s\n", s.Format(s.Liabilities))
	fmt.Fprintf(w, "\nCash flow, %s\n", period)
	fmt.Fprintf(w, "  Income      %16s\n", s.Format(s.Income))
	fmt.Fprintf(w, "  Expenses    %16s\n", s.Format(s.Expenses))
	fmt.Fprintf(w, "  Savings     %16s  (%s%%)\n", s.Format(s.Savings), s.SavingsRate.StringFixed(1))
	return nil
}

func newTransactionsCommand(opts *rootOptions) *cobra.Command {
	var q struct {
		account, since, until string
		limit                 int
	}

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recent postings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := parseDate("since", q.since)
			if err != nil {
				return err
			}
			until, err := parseDate("until", q.until)
			if err != nil {
				return err
			}
			tq := beanquery.TransactionsQuery{Account: q.account, Since: since, Until: until, Limit: q.limit}
			return runTransactions(cmd.Context(), opts, cmd.OutOrStdout(), tq)
		},
	}

	cmd.Flags().StringVar(&q.account, "account", "", "account regular expression")
	cmd.Flags().StringVar(&q.since, "since", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.until, "until", "", "last date, YYYY-MM-DD")
	cmd.Flags().IntVar(&q.limit, "limit", controller.DefaultTransactionLimit, "maximum number of postings")

	return cmd
}

func runTransactions(ctx context.Context, opts *rootOptions, w io.Writer, q beanquery.TransactionsQuery) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	c := controller.NewTransactions(a.runner, a.log)
	if err := c.SetQuery(ctx, q); err != nil {
		return err
	}
	for _, r := range c.Store().Snapshot().Rows {
		desc := r.Narration
		if r.Payee != "" {
			desc = r.Payee + " | " + r.Narration
		}
		fmt.Fprintf(w, "%s %s %-40s %-30s %16s\n", r.Date, r.Flag, desc, r.Account, r.Position)
	}
	return nil
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var mode, currency string

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the balance sheet to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd.OutOrStdout(), args[0], mode, currency)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "valuation mode (default from config)")
	cmd.Flags().StringVar(&currency, "currency", "", "reporting currency (default from config)")

	return cmd
}

func runExport(ctx context.Context, opts *rootOptions, w io.Writer, path, mode, currency string) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := loadBalanceSheet(ctx, a, mode, currency)
	if err != nil {
		return err
	}
	meta := export.Meta{
		Currency:  s.Currency,
		Mode:      s.Mode,
		Generated: time.Now(),
	}
	if s.Sheet != nil {
		meta.NetWorth = s.Sheet.NetWorth
	}
	if err := export.WriteBalanceSheet(path, s.Items, meta); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %d rows to %s\n", len(s.Items), path)
	return nil
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, s)
	}
	return t, nil
}
