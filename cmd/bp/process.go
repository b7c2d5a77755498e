package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/events"
	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/processor"
	bpsync "github.com/alfredjeanlab/buildproc/internal/sync"
	"github.com/alfredjeanlab/buildproc/internal/ui"
	"github.com/spf13/cobra"
)

// defaultModels are requested when --models is not given: enough to list
// builds with their project, user and outcome.
var defaultModels = []string{
	string(model.ModelGradleAttributes),
	string(model.ModelMavenAttributes),
	string(model.ModelBazelAttributes),
}

var processCmd = &cobra.Command{
	Use:     "process",
	Short:   "Process every build published since a point in time",
	GroupID: "builds",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceFlag, _ := cmd.Flags().GetString("since")
		query, _ := cmd.Flags().GetString("query")
		modelNames, _ := cmd.Flags().GetStringSlice("models")
		maxBuilds, _ := cmd.Flags().GetInt("max-builds")
		exportPath, _ := cmd.Flags().GetString("export")
		quiet, _ := cmd.Flags().GetBool("quiet")

		since, err := parseSince(sinceFlag, time.Now())
		if err != nil {
			return err
		}
		models, err := model.ParseModelSet(modelNames)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := newClient()
		if err != nil {
			return err
		}
		chain, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer chain.Close()
		pub, err := newPublisher()
		if err != nil {
			return err
		}
		defer pub.Close()

		collector := bpsync.NewCollector()
		pcfg := processorConfig(chain)
		if maxBuilds > 0 {
			pcfg.MaxBuildsPerRequest = maxBuilds
		}
		pcfg.BuildListeners = []processor.BuildListener{collector.Listener(models)}
		pcfg.ProcessListeners = []processor.ProcessListener{events.NewProcessListener(ctx, pub, logger)}
		if !quiet && !jsonOutput {
			pcfg.ProcessListeners = append(pcfg.ProcessListeners, ui.NewProgress(cmd.ErrOrStderr()).Listener())
		}

		p, err := processor.New(c, pcfg)
		if err != nil {
			return err
		}
		if err := p.Process(ctx, since, query); err != nil {
			return err
		}

		builds := collector.Builds()
		if exportPath != "" {
			var buf bytes.Buffer
			if err := bpsync.ExportJSONL(builds, &buf); err != nil {
				return err
			}
			if err := bpsync.NewFileDestination(exportPath).Write(ctx, buf.Bytes()); err != nil {
				return err
			}
			logger.Info("export written", "path", exportPath, "builds", len(builds))
		}

		if jsonOutput {
			printJSON(cmd.OutOrStdout(), builds)
			return nil
		}
		if !quiet {
			printBuildList(cmd.OutOrStdout(), builds)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().String("since", "24h", "process builds published since this duration ago, RFC 3339 time or date")
	processCmd.Flags().String("query", "", "server-side build search query")
	processCmd.Flags().StringSlice("models", defaultModels, `build models to fetch ("*" for all)`)
	processCmd.Flags().Int("max-builds", 0, "maximum builds per fetch request (default 100)")
	processCmd.Flags().String("export", "", "write processed builds as JSONL to this file")
	processCmd.Flags().BoolP("quiet", "q", false, "suppress progress and the build table")
}
