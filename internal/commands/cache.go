package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beandash/beandash/internal/querycache"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query cache",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "purge",
			Short: "Remove every cached query result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, func(c *querycache.Cache) error {
					n, err := c.Len()
					if err != nil {
						return err
					}
					if err := c.Purge(); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached queries\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number of cached query results",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(opts, func(c *querycache.Cache) error {
					n, err := c.Len()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d cached queries\n", n)
					return nil
				})
			},
		},
	)
	return cacheCmd
}

// withCache opens the configured cache file directly; no ledger is needed.
func withCache(opts *rootOptions, fn func(*querycache.Cache) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	c, err := querycache.Open(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
