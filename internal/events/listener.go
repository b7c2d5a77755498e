package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/processor"
)

// NewProcessListener returns a ProcessListener that publishes every
// lifecycle event of a run to pub. Listeners cannot fail a run, so publish
// errors are logged and dropped.
func NewProcessListener(ctx context.Context, pub Publisher, logger *slog.Logger) processor.ProcessListener {
	publish := func(topic string, event any) {
		if err := pub.Publish(ctx, topic, event); err != nil {
			logger.Warn("publishing event failed", "topic", topic, "error", err)
		}
	}
	header := func(topic, runID string, t time.Time) Header {
		return Header{Type: topic, RunID: runID, Time: t}
	}
	build := func(topic, runID string, t time.Time, b *model.Build) BuildProcessed {
		return BuildProcessed{
			Header:        header(topic, runID, t),
			BuildID:       b.ID,
			BuildToolType: b.BuildToolType,
			AvailableAt:   b.AvailableAt,
		}
	}

	return processor.ProcessListener{
		OnDiscoveryStarted: func(e processor.DiscoveryStarted) {
			publish(TopicDiscoveryStarted, DiscoveryStarted{
				Header: header(TopicDiscoveryStarted, e.RunID, e.Time),
				Since:  e.Since,
				Query:  e.Query,
			})
		},
		OnDiscoveryFinished: func(e processor.DiscoveryFinished) {
			publish(TopicDiscoveryFinished, DiscoveryFinished{
				Header: header(TopicDiscoveryFinished, e.RunID, e.Time),
				Builds: len(e.Builds),
			})
		},
		OnProcessingStarted: func(e processor.ProcessingStarted) {
			publish(TopicProcessingStarted, ProcessingStarted{
				Header: header(TopicProcessingStarted, e.RunID, e.Time),
			})
		},
		OnCached: func(e processor.CachedBuild) {
			publish(TopicBuildCached, build(TopicBuildCached, e.RunID, e.Time, e.Build))
		},
		OnFetched: func(e processor.FetchedBuild) {
			publish(TopicBuildFetched, build(TopicBuildFetched, e.RunID, e.Time, e.Build))
		},
		OnProcessingFinished: func(e processor.ProcessingFinished) {
			publish(TopicProcessingFinished, ProcessingFinished{
				Header:  header(TopicProcessingFinished, e.RunID, e.Time),
				Cached:  e.Cached,
				Fetched: e.Fetched,
			})
		},
	}
}
