package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/events"
	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/processor"
	"github.com/alfredjeanlab/buildproc/internal/server"
	bpsync "github.com/alfredjeanlab/buildproc/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Process new builds on an interval and export them",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		modelNames, _ := cmd.Flags().GetStringSlice("models")
		models, err := model.ParseModelSet(modelNames)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
		publisher, err := newPublisher()
		if err != nil {
			return err
		}

		var dests []bpsync.Destination
		if cfg.ExportS3Bucket != "" {
			s3Dest, err := bpsync.NewS3Destination(ctx, cfg.ExportS3Bucket, cfg.ExportS3Key, cfg.CacheS3Region, cfg.CacheS3Endpoint)
			if err != nil {
				logger.Error("failed to create S3 export destination", "err", err)
			} else {
				if cfg.ExportSnapshots {
					s3Dest.WithSnapshots()
				}
				dests = append(dests, s3Dest)
				logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
			}
		}
		if cfg.ExportGitRepo != "" {
			dests = append(dests, bpsync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
			logger.Info("export git destination enabled", "repo", cfg.ExportGitRepo, "file", cfg.ExportGitFile)
		}
		if path, _ := cmd.Flags().GetString("export"); path != "" {
			dests = append(dests, bpsync.NewFileDestination(path))
			logger.Info("export file destination enabled", "path", path)
		}

		collector := bpsync.NewCollector()
		pcfg := processorConfig(chain)
		pcfg.BuildListeners = []processor.BuildListener{collector.Listener(models)}
		pcfg.ProcessListeners = []processor.ProcessListener{events.NewProcessListener(ctx, publisher, logger)}
		p, err := processor.New(c, pcfg)
		if err != nil {
			publisher.Close()
			return err
		}

		grpcServer, health := server.NewGRPCServer(cfg.GRPCToken, logger)
		job := func(ctx context.Context) error {
			collector.Reset()
			err := processAndExport(ctx, p, collector, dests, query)
			health.Report(err)
			return err
		}

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		scheduler := bpsync.NewScheduler(job, cfg.ServeInterval, logger)
		scheduler.Start()
		logger.Info("buildproc server started",
			"grpc_addr", cfg.GRPCAddr,
			"interval", cfg.ServeInterval,
			"window", cfg.ServeWindow,
			"destinations", len(dests),
		)

		<-ctx.Done()
		logger.Info("received signal, shutting down")

		scheduler.Stop()
		logger.Info("scheduler stopped")

		health.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}

// processAndExport runs one processing pass over the serve window and writes
// the collected builds to every destination.
func processAndExport(ctx context.Context, p *processor.Processor, collector *bpsync.Collector, dests []bpsync.Destination, query string) error {
	since := time.Now().Add(-cfg.ServeWindow)
	if err := p.Process(ctx, since, query); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	if len(dests) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := bpsync.ExportJSONL(collector.Builds(), &buf); err != nil {
		return err
	}
	return bpsync.WriteAll(ctx, buf.Bytes(), dests)
}

func init() {
	serveCmd.Flags().String("query", "", "server-side build search query")
	serveCmd.Flags().StringSlice("models", defaultModels, `build models to fetch ("*" for all)`)
	serveCmd.Flags().String("export", "", "also write each export to this file")
}
