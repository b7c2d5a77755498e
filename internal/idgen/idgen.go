// Package idgen generates processing run identifiers. A run id sorts by the
// time the run started and stays short enough to read in logs:
//
//	run-20260301T100000-k3x9q2mzpa
package idgen

import (
	"fmt"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	prefix     = "run-"
	timeLayout = "20060102T150405"

	// Alphabet is the character set of the random suffix.
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// Length is the number of random characters in the suffix.
	Length = 10
)

// RunID returns a new id for a run started at t. The timestamp is UTC with
// second precision; the random suffix keeps ids started in the same second
// apart.
func RunID(t time.Time) (string, error) {
	suffix, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + t.UTC().Format(timeLayout) + "-" + suffix, nil
}

// RunTime extracts the start time from a run id.
func RunTime(id string) (time.Time, error) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return time.Time{}, fmt.Errorf("idgen: %q is not a run id", id)
	}
	stamp, suffix, ok := strings.Cut(rest, "-")
	if !ok || len(suffix) != Length {
		return time.Time{}, fmt.Errorf("idgen: %q is not a run id", id)
	}
	t, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("idgen: %q is not a run id: %w", id, err)
	}
	return t, nil
}
