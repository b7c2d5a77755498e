package idgen

import (
	"regexp"
	"sort"
	"testing"
	"time"
)

var runIDPattern = regexp.MustCompile(`^run-\d{8}T\d{6}-[a-z0-9]{10}$`)

func TestRunID_Format(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := RunID(at)
	if err != nil {
		t.Fatalf("RunID: %v", err)
	}
	if !runIDPattern.MatchString(id) {
		t.Fatalf("RunID = %q, does not match %s", id, runIDPattern)
	}
	if id[:len("run-20260301T100000-")] != "run-20260301T100000-" {
		t.Errorf("RunID = %q, wrong timestamp", id)
	}
}

func TestRunID_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	id, err := RunID(time.Date(2026, 3, 1, 12, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("RunID: %v", err)
	}
	got, err := RunTime(id)
	if err != nil {
		t.Fatalf("RunTime: %v", err)
	}
	if want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("RunTime = %v, want %v", got, want)
	}
}

func TestRunID_Uniqueness(t *testing.T) {
	const count = 10_000
	at := time.Now()
	seen := make(map[string]struct{}, count)
	for i := range count {
		id, err := RunID(at)
		if err != nil {
			t.Fatalf("RunID error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestRunID_SortsByStartTime(t *testing.T) {
	base := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	var ids []string
	for _, d := range []time.Duration{2 * time.Hour, 0, time.Second, 24 * time.Hour} {
		id, err := RunID(base.Add(d))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var prev time.Time
	for _, id := range ids {
		got, err := RunTime(id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Before(prev) {
			t.Errorf("ids out of time order: %v", ids)
		}
		prev = got
	}
}

func TestRunTime_Invalid(t *testing.T) {
	for _, id := range []string{
		"",
		"bd-abc123",
		"run-",
		"run-20260301T100000",
		"run-20260301T100000-short",
		"run-2026-03-01-k3x9q2mzpa",
	} {
		if _, err := RunTime(id); err == nil {
			t.Errorf("RunTime(%q) succeeded, want error", id)
		}
	}
}
