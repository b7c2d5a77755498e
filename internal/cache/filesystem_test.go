package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

func TestPartitioning_Path(t *testing.T) {
	for _, tc := range []struct {
		name        string
		granularity int
		id          string
		want        string
	}{
		{"Default", 2, "abcdef", filepath.Join("root", "ab", "abcdef.json")},
		{"Wider", 4, "abcdef", filepath.Join("root", "abcd", "abcdef.json")},
		{"ShortID", 2, "a", filepath.Join("root", "a", "a.json")},
		{"ZeroMeansDefault", 0, "xyz123", filepath.Join("root", "xy", "xyz123.json")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := Partitioning{Root: "root", Granularity: tc.granularity}
			got, err := p.Path(tc.id)
			if err != nil {
				t.Fatalf("Path(%q): %v", tc.id, err)
			}
			if got != tc.want {
				t.Errorf("Path(%q) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}

func TestPartitioning_PathRejectsInvalidIDs(t *testing.T) {
	p := NewPartitioning("root")
	for _, id := range []string{"", "..", "../victim", "ab/../../x", "a/b", `a\b`, "..abc", "abc..", "a\x00b"} {
		if got, err := p.Path(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Path(%q) = %q, %v; want ErrInvalidID", id, got, err)
		}
	}
}

func TestFileSystem_InvalidIDStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	root := filepath.Join(base, "a", "cache")
	c := NewFileSystem(NewPartitioning(root), discardLogger())

	// A decodable document whose id differs from the requested one would be
	// treated as corrupt and removed if the lookup reached it.
	victim := filepath.Join(base, "a", "victim.json")
	if err := os.WriteFile(victim, []byte(`{"id":"other","buildToolType":"gradle"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../victim", "../../a/victim", "ca/../../victim"} {
		b, ok, err := c.Load(ctx, id, attrs)
		if ok || err != nil || b != nil {
			t.Errorf("Load(%q) = %v, %v, %v; want miss", id, b, ok, err)
		}
	}
	if _, err := os.Stat(victim); err != nil {
		t.Fatalf("file outside the cache root was touched: %v", err)
	}

	err := c.Save(ctx, &model.Build{ID: "../victim", BuildToolType: model.KindGradle})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save with escaping id = %v, want ErrInvalidID", err)
	}
	entries, err := os.ReadDir(filepath.Join(base, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "victim.json" {
		t.Errorf("Save wrote outside the cache root: %v", entries)
	}
}

func TestFileSystem_SaveLoad(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := NewFileSystem(NewPartitioning(root), nil)

	if _, ok, err := c.Load(ctx, "abc123", attrs); ok || err != nil {
		t.Fatalf("Load on empty cache = %v, %v", ok, err)
	}

	if err := c.Save(ctx, newBuild(t, "abc123", model.ModelGradleAttributes)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ab", "abc123.json")); err != nil {
		t.Fatalf("expected partitioned file: %v", err)
	}

	b, ok, err := c.Load(ctx, "abc123", attrs)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if b.ID != "abc123" || b.BuildToolType != model.KindGradle || !b.HasModel(model.ModelGradleAttributes) {
		t.Errorf("unexpected build: %+v", b)
	}

	if _, ok, _ := c.Load(ctx, "abc123", model.NewModelSet(model.ModelGradleDeprecations)); ok {
		t.Error("expected miss for a model the stored build lacks")
	}
}

func TestFileSystem_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewFileSystem(NewPartitioning(t.TempDir()), nil)
	c.Save(ctx, newBuild(t, "abc123", model.ModelGradleAttributes))
	c.Save(ctx, newBuild(t, "abc123"))

	if _, ok, _ := c.Load(ctx, "abc123", attrs); ok {
		t.Error("second save should have replaced the richer document")
	}
}

func TestFileSystem_CorruptFileIsRemoved(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := NewFileSystem(NewPartitioning(root), nil)

	path := filepath.Join(root, "zz", "zzz999.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, ok, err := c.Load(ctx, "zzz999", model.ModelSet{})
	if err != nil || ok || b != nil {
		t.Fatalf("Load = %v, %v, %v; want miss", b, ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt file should be deleted, stat err = %v", err)
	}
}

func TestDefaultRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := DefaultRoot()
	if err != nil {
		t.Fatalf("DefaultRoot: %v", err)
	}
	if want := filepath.Join(home, ".buildproc", "cache"); got != want {
		t.Errorf("DefaultRoot = %q, want %q", got, want)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
