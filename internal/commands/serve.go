package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/controller"
	"github.com/beandash/beandash/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard views as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd.OutOrStdout(), addr, noJournal)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not connect to or start the journal backend")

	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, w io.Writer, addr string, noJournal bool) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	cur := a.cfg.Ledger.Currency
	accts := controller.NewAccounts(a.runner, cur, a.log)
	views := httpapi.Views{
		BalanceSheet: controller.NewBalanceSheet(a.runner, cur, a.valuation(), a.log),
		Accounts:     accts,
		Overview:     controller.NewOverview(a.runner, cur, a.log),
		Transactions: controller.NewTransactions(a.runner, a.log),
		Commodities:  controller.NewCommodities(a.runner, cur, a.log),
	}
	if !noJournal {
		client, stop, err := a.journalBackend(ctx)
		if err != nil {
			a.log.Warn("journal view disabled", "error", err)
		} else {
			defer stop()
			views.Journal = a.newJournal(client, accts)
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(views, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("serving", "addr", addr, "ledger", a.cfg.Ledger.Path)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(w, "Listening on http://%s\n", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
