package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/processor"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	BuildCount int       `json:"build_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Collector gathers the builds handed to it by processing runs. A build seen
// again replaces the earlier copy.
type Collector struct {
	mu     sync.Mutex
	builds map[string]*model.Build
}

func NewCollector() *Collector {
	return &Collector{builds: make(map[string]*model.Build)}
}

// Listener returns a BuildListener that adds every build to c, requiring
// models to be embedded.
func (c *Collector) Listener(models model.ModelSet) processor.BuildListener {
	return processor.BuildListener{Models: models, OnBuild: c.Add}
}

func (c *Collector) Add(b *model.Build) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds[b.ID] = b
}

// Builds returns the collected builds ordered by availability, then id.
func (c *Collector) Builds() []*model.Build {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Build, 0, len(c.builds))
	for _, b := range c.builds {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *model.Build) int {
		if a.AvailableAt != b.AvailableAt {
			if a.AvailableAt < b.AvailableAt {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Reset drops every collected build.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.builds)
}

// ExportJSONL writes a header line followed by one line per build to w, in
// the order given.
func ExportJSONL(builds []*model.Build, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		BuildCount: len(builds),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, b := range builds {
		if err := enc.Encode(record{Type: "build", Data: b}); err != nil {
			return fmt.Errorf("encode build %s: %w", b.ID, err)
		}
	}
	return nil
}
