package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/buildproc/internal/cache"
	"github.com/alfredjeanlab/buildproc/internal/client"
	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <build-id>",
	Short:   "Show a single build, from the cache when possible",
	GroupID: "builds",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := cache.ValidateID(id); err != nil {
			return err
		}
		modelNames, _ := cmd.Flags().GetStringSlice("models")
		models, err := model.ParseModelSet(modelNames)
		if err != nil {
			return err
		}

		ctx := context.Background()
		chain, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer chain.Close()

		b, hit, err := chain.Load(ctx, id, models)
		if err != nil {
			logger.Warn("cache load failed", "build_id", id, "err", err)
		}
		if !hit {
			c, err := newClient()
			if err != nil {
				return err
			}
			b, err = c.GetBuild(ctx, id, models)
			if client.IsNotFound(err) {
				return fmt.Errorf("build %s not found", id)
			}
			if err != nil {
				return err
			}
			if err := chain.Save(ctx, b); err != nil {
				logger.Warn("cache save failed", "build_id", id, "err", err)
			}
		}
		logger.Debug("build loaded", "build_id", id, "cached", hit)

		if jsonOutput {
			printJSON(cmd.OutOrStdout(), b)
			return nil
		}
		printBuildTable(cmd.OutOrStdout(), b)
		return nil
	},
}

func init() {
	showCmd.Flags().StringSlice("models", []string{string(model.ModelAll)}, `build models to load ("*" for all)`)
}
