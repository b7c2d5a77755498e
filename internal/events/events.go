// Package events publishes processing lifecycle events to the event bus and
// subscribes to them.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// Event topic constants
const (
	TopicDiscoveryStarted   = "buildproc.discovery.started"
	TopicDiscoveryFinished  = "buildproc.discovery.finished"
	TopicProcessingStarted  = "buildproc.processing.started"
	TopicBuildCached        = "buildproc.build.cached"
	TopicBuildFetched       = "buildproc.build.fetched"
	TopicProcessingFinished = "buildproc.processing.finished"

	// TopicAll matches every buildproc event.
	TopicAll = "buildproc.>"
)

// Header is embedded in every event so a subscriber on a wildcard subject
// can tell events apart.
type Header struct {
	Type  string    `json:"type"` // the topic the event was published to
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`
}

// Event types

type DiscoveryStarted struct {
	Header
	Since time.Time `json:"since"`
	Query string    `json:"query,omitempty"`
}

type DiscoveryFinished struct {
	Header
	Builds int `json:"builds"`
}

type ProcessingStarted struct {
	Header
}

// BuildProcessed is published for both cached and fetched builds; Type
// tells them apart.
type BuildProcessed struct {
	Header
	BuildID       string     `json:"build_id"`
	BuildToolType model.Kind `json:"build_tool_type"`
	AvailableAt   int64      `json:"available_at"`
}

type ProcessingFinished struct {
	Header
	Cached  int `json:"cached"`
	Fetched int `json:"fetched"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
