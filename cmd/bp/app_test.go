package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/ui"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "24h", want: now.Add(-24 * time.Hour)},
		{in: "90m", want: now.Add(-90 * time.Minute)},
		{in: "0s", want: now},
		{in: "2026-03-01T08:30:00Z", want: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{in: "2026-03-01", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "-1h", wantErr: true},
		{in: "yesterday", wantErr: true},
		{in: "", wantErr: true},
	} {
		got, err := parseSince(tc.in, now)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseSince(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSince(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	} {
		got, err := parseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrintBuildList(t *testing.T) {
	ui.ForceNoColor()
	builds := []*model.Build{
		{ID: "abc123", AvailableAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), BuildToolType: model.KindGradle},
		{ID: "def456", AvailableAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC).UnixMilli(), BuildToolType: model.KindMaven},
	}

	var buf bytes.Buffer
	printBuildList(&buf, builds)
	out := buf.String()

	for _, want := range []string{"ID", "TOOL", "abc123", "gradle", "def456", "maven", "2026-03-01 10:00:00", "2 builds"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Builds without attribute models render placeholders.
	if !strings.Contains(out, "-") {
		t.Errorf("output missing placeholder:\n%s", out)
	}
}

func TestPrintEvent(t *testing.T) {
	ui.ForceNoColor()
	data := []byte(`{"type":"buildproc.build.fetched","run_id":"run-xyz","time":"2026-03-01T10:00:00Z","build_id":"abc"}`)

	t.Run("text", func(t *testing.T) {
		jsonOutput = false
		var buf bytes.Buffer
		printEvent(&buf, data)
		out := buf.String()
		if !strings.Contains(out, "run-xyz") || !strings.Contains(out, "buildproc.build.fetched") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		jsonOutput = true
		defer func() { jsonOutput = false }()
		var buf bytes.Buffer
		printEvent(&buf, data)
		if strings.TrimSpace(buf.String()) != string(data) {
			t.Errorf("output = %q, want raw event", buf.String())
		}
	})
}
