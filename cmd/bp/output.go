package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/ui"
)

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// orDash renders an attribute, or "-" when the build cannot provide it.
func orDash(s string, err error) string {
	if err != nil || s == "" {
		return "-"
	}
	return s
}

func outcome(b *model.Build) string {
	failed, err := model.HasFailed(b)
	switch {
	case err != nil:
		return "-"
	case failed:
		return ui.RenderError("failed")
	default:
		return ui.RenderCached("ok")
	}
}

func duration(b *model.Build) string {
	d, err := model.Duration(b)
	if err != nil {
		return "-"
	}
	return d.Round(time.Second).String()
}

func printBuildList(w io.Writer, builds []*model.Build) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tAVAILABLE\tPROJECT\tUSER\tOUTCOME\tDURATION")
	for _, b := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			b.BuildToolType,
			b.Available().UTC().Format(time.DateTime),
			orDash(model.ProjectName(b)),
			orDash(model.User(b)),
			outcome(b),
			duration(b),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d builds\n", len(builds))
}

func printBuildTable(w io.Writer, b *model.Build) {
	fmt.Fprintf(w, "ID:          %s\n", b.ID)
	fmt.Fprintf(w, "Tool:        %s %s\n", b.BuildToolType, b.BuildToolVersion)
	if b.BuildAgentVersion != "" {
		fmt.Fprintf(w, "Agent:       %s\n", b.BuildAgentVersion)
	}
	fmt.Fprintf(w, "Available:   %s\n", b.Available().UTC().Format(time.DateTime))
	if start, err := model.StartTime(b); err == nil {
		fmt.Fprintf(w, "Started:     %s\n", start.UTC().Format(time.DateTime))
	}
	fmt.Fprintf(w, "Duration:    %s\n", duration(b))
	fmt.Fprintf(w, "Project:     %s\n", orDash(model.ProjectName(b)))
	fmt.Fprintf(w, "User:        %s\n", orDash(model.User(b)))
	fmt.Fprintf(w, "Outcome:     %s\n", outcome(b))
	if units, err := model.RequestedWorkUnits(b); err == nil && len(units) > 0 {
		fmt.Fprintf(w, "Requested:   %s\n", strings.Join(units, " "))
	}
	if tags, err := model.Tags(b); err == nil && len(tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(tags, ", "))
	}
	if present := b.Present(); !present.IsEmpty() {
		fmt.Fprintf(w, "Models:      %s\n", ui.RenderMuted(strings.Join(present.Names(), ", ")))
	}
}
