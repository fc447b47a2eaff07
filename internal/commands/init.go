package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/config"
	"github.com/beandash/beandash/internal/model"
)

func newInitCommand() *cobra.Command {
	var ledger, currency, valuation string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, ledger, currency, valuation, force)
		},
	}

	cmd.Flags().StringVar(&ledger, "ledger", "main.beancount", "ledger file, relative to the directory")
	cmd.Flags().StringVar(&currency, "currency", "USD", "reporting currency")
	cmd.Flags().StringVar(&valuation, "valuation", string(model.ValuationConvert), "valuation mode: convert, cost or units")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(w io.Writer, dir, ledger, currency, valuation string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default(ledger)
	cfg.Ledger.Currency = currency
	cfg.Ledger.Valuation = valuation
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := ensureIgnored(filepath.Join(dir, ".gitignore"), cfg.Cache.Path); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}

	fmt.Fprintf(w, "Wrote %s (ledger %s, %s in %s)\n", path, ledger, valuation, currency)
	return nil
}

// ensureIgnored appends pattern to a .gitignore unless a line already matches.
func ensureIgnored(path, pattern string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}
	data = append(data, pattern+"\n"...)
	return os.WriteFile(path, data, 0o644)
}
