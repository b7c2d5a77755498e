// Package client provides the interface the processor uses to talk to the
// build-telemetry server and an HTTP/JSON implementation of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// Client lists and fetches builds from the server. Listings are always
// newest first.
type Client interface {
	// GetBuilds returns up to q.MaxBuilds builds older than q.FromBuild (or
	// the newest builds when FromBuild is empty), each carrying q.Models.
	GetBuilds(ctx context.Context, q BuildsQuery) ([]*model.Build, error)

	// GetBuild fetches a single build with the given models.
	GetBuild(ctx context.Context, id string, models model.ModelSet) (*model.Build, error)
}

// BuildsQuery holds the parameters of a build listing request.
type BuildsQuery struct {
	Query     string // server-side search expression, optional
	MaxBuilds int
	FromBuild string // pagination cursor: the id of the last build already seen
	Models    model.ModelSet
}
