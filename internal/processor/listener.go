package processor

import (
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// BuildListener receives every build a processing run makes available.
// Models declares what the listener needs embedded in those builds. Nil
// callbacks are skipped.
type BuildListener struct {
	Models model.ModelSet

	// OnBuild is called for every build, before the kind-specific callback.
	OnBuild func(b *model.Build)

	OnGradle func(b *model.Build)
	OnMaven  func(b *model.Build)
	OnBazel  func(b *model.Build)
	OnSbt    func(b *model.Build)
}

func (l BuildListener) dispatch(b *model.Build) {
	if l.OnBuild != nil {
		l.OnBuild(b)
	}
	var fn func(*model.Build)
	switch b.BuildToolType {
	case model.KindGradle:
		fn = l.OnGradle
	case model.KindMaven:
		fn = l.OnMaven
	case model.KindBazel:
		fn = l.OnBazel
	case model.KindSbt:
		fn = l.OnSbt
	}
	if fn != nil {
		fn(b)
	}
}

// ProcessListener observes the lifecycle of a processing run.
type ProcessListener struct {
	OnDiscoveryStarted   func(DiscoveryStarted)
	OnDiscoveryFinished  func(DiscoveryFinished)
	OnProcessingStarted  func(ProcessingStarted)
	OnCached             func(CachedBuild)
	OnFetched            func(FetchedBuild)
	OnProcessingFinished func(ProcessingFinished)
}

// DiscoveryStarted is emitted before the first discovery request.
type DiscoveryStarted struct {
	Time  time.Time
	RunID string
	Since time.Time
	Query string
}

// DiscoveryFinished carries every discovered build, newest first.
type DiscoveryFinished struct {
	Time   time.Time
	RunID  string
	Builds []*model.Build
}

// ProcessingStarted is emitted once discovery is complete.
type ProcessingStarted struct {
	Time  time.Time
	RunID string
}

// CachedBuild is emitted for a build served entirely from the cache.
type CachedBuild struct {
	Time  time.Time
	RunID string
	Build *model.Build
}

// FetchedBuild is emitted for a build fetched from the server.
type FetchedBuild struct {
	Time  time.Time
	RunID string
	Build *model.Build
}

// ProcessingFinished is emitted after the last build has been dispatched.
type ProcessingFinished struct {
	Time    time.Time
	RunID   string
	Cached  int
	Fetched int
}
