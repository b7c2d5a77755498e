package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/processor"
)

func TestShouldUseColor(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want bool
	}{
		{name: "NoColor", env: map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, want: false},
		{name: "Forced", env: map[string]string{"NO_COLOR": "", "CLICOLOR_FORCE": "1"}, want: true},
		{name: "Disabled", env: map[string]string{"NO_COLOR": "", "CLICOLOR_FORCE": "", "CLICOLOR": "0"}, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := ShouldUseColor(); got != tc.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsTerminal_Buffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestRender_NoColor(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })

	noColor = false
	if got := RenderAccent("x"); !strings.Contains(got, "\x1b[38;5;74m") {
		t.Errorf("RenderAccent = %q", got)
	}
	ForceNoColor()
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderCommand, RenderCached, RenderFetched, RenderError} {
		if got := fn("x"); got != "x" {
			t.Errorf("render with color disabled = %q", got)
		}
	}
}

func TestProgress_SummaryWhenNotLive(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })
	ForceNoColor()

	var buf bytes.Buffer
	p := NewProgress(&buf)
	l := p.Listener()

	b := &model.Build{ID: "b1"}
	l.OnDiscoveryStarted(processor.DiscoveryStarted{})
	l.OnDiscoveryFinished(processor.DiscoveryFinished{Builds: []*model.Build{b, b, b}})
	l.OnCached(processor.CachedBuild{Build: b})
	l.OnFetched(processor.FetchedBuild{Build: b})
	l.OnFetched(processor.FetchedBuild{Build: b})

	if buf.Len() != 0 {
		t.Errorf("wrote %q before the run finished", buf.String())
	}
	l.OnProcessingFinished(processor.ProcessingFinished{})

	want := "processed 3/3 builds (1 cached, 2 fetched)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if d, c, f := p.Counts(); d != 3 || c != 1 || f != 2 {
		t.Errorf("Counts = %d, %d, %d", d, c, f)
	}
}

func TestProgress_Live(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })
	ForceNoColor()

	var buf bytes.Buffer
	p := &Progress{w: &buf, live: true}
	l := p.Listener()
	l.OnDiscoveryStarted(processor.DiscoveryStarted{})
	l.OnDiscoveryFinished(processor.DiscoveryFinished{Builds: []*model.Build{{ID: "b1"}}})
	l.OnFetched(processor.FetchedBuild{Build: &model.Build{ID: "b1"}})
	l.OnProcessingFinished(processor.ProcessingFinished{})

	out := buf.String()
	if !strings.HasPrefix(out, "\rdiscovering builds...") {
		t.Errorf("output = %q", out)
	}
	if !strings.HasSuffix(out, "\rprocessed 1/1 builds (0 cached, 1 fetched)\n") {
		t.Errorf("output = %q", out)
	}
}
