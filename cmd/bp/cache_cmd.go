package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/cache"
	"github.com/alfredjeanlab/buildproc/internal/store"
	"github.com/alfredjeanlab/buildproc/internal/store/postgres"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Short:   "Inspect and clean the build cache",
	GroupID: "system",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the local filesystem cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheDisabled() {
			return fmt.Errorf("filesystem cache is disabled")
		}
		root := cfg.CacheDir
		if root == "" {
			var err error
			if root, err = cache.DefaultRoot(); err != nil {
				return err
			}
		}
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("removing cache %s: %w", root, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", root)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete builds older than a cutoff from the postgres cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		st, err := openPostgres()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Prune(context.Background(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d builds\n", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the builds in the postgres cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openPostgres()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Count(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]int{"builds": n})
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d builds cached\n", n)
		return nil
	},
}

func openPostgres() (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("BP_DATABASE_URL is not set")
	}
	return postgres.New(cfg.DatabaseURL, logger)
}

func init() {
	cachePruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "prune builds that became available before this long ago")

	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
