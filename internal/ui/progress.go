package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/alfredjeanlab/buildproc/internal/processor"
)

// Progress reports how far a processing run has come. On a terminal the
// status line is rewritten in place after every build; elsewhere a single
// summary is printed when the run finishes.
type Progress struct {
	mu   sync.Mutex
	w    io.Writer
	live bool

	discovered int
	cached     int
	fetched    int
}

// NewProgress returns a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w, live: IsTerminal(w)}
}

// Listener returns the ProcessListener that feeds p.
func (p *Progress) Listener() processor.ProcessListener {
	return processor.ProcessListener{
		OnDiscoveryStarted: func(processor.DiscoveryStarted) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.discovered, p.cached, p.fetched = 0, 0, 0
			if p.live {
				fmt.Fprint(p.w, "\r"+RenderMuted("discovering builds..."))
			}
		},
		OnDiscoveryFinished: func(e processor.DiscoveryFinished) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.discovered = len(e.Builds)
			p.redraw()
		},
		OnCached: func(processor.CachedBuild) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.cached++
			p.redraw()
		},
		OnFetched: func(processor.FetchedBuild) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.fetched++
			p.redraw()
		},
		OnProcessingFinished: func(processor.ProcessingFinished) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.live {
				fmt.Fprint(p.w, "\r"+p.line()+"\n")
				return
			}
			fmt.Fprintln(p.w, p.line())
		},
	}
}

// Counts returns the totals of the current or last run.
func (p *Progress) Counts() (discovered, cached, fetched int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discovered, p.cached, p.fetched
}

func (p *Progress) redraw() {
	if p.live {
		fmt.Fprint(p.w, "\r"+p.line())
	}
}

func (p *Progress) line() string {
	return fmt.Sprintf("%s %d/%d builds (%s, %s)",
		RenderAccent("processed"),
		p.cached+p.fetched, p.discovered,
		RenderCached(fmt.Sprintf("%d cached", p.cached)),
		RenderFetched(fmt.Sprintf("%d fetched", p.fetched)))
}
