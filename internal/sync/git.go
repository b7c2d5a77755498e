package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination writes JSONL data to a file in a git repo and pushes.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // file path within the repo
	branch string // branch to commit and push to
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{
		repo:   repo,
		file:   file,
		branch: branch,
	}
}

// Write writes data to the configured file, commits, and pushes. Nothing is
// committed when the file is unchanged.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}

	// The remote might not have the branch yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	filePath := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if _, err := d.git(ctx, "add", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if _, err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}

	msg := fmt.Sprintf("export: update %s (%d builds)", filepath.Base(d.file), countRecords(data))
	if _, err := d.git(ctx, "commit", "-m", msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	if _, err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// git runs a git command in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// countRecords returns the number of build lines in a JSONL export.
func countRecords(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if n > 0 {
		n-- // header
	}
	return n
}
