// Package watch detects branch switches by watching a repository's HEAD file.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/joescharf/ptime/internal/git"
)

// BranchFunc is called with the new branch after HEAD changes.
type BranchFunc func(ctx context.Context, branch string) error

// BranchWatcher reports branch changes in one repository.
type BranchWatcher struct {
	GitDir   string
	OnChange BranchFunc
	Logger   *slog.Logger

	last string
}

// NewBranchWatcher returns a watcher for the repository whose git directory
// is gitDir.
func NewBranchWatcher(gitDir string, onChange BranchFunc) *BranchWatcher {
	return &BranchWatcher{GitDir: gitDir, OnChange: onChange, Logger: slog.Default()}
}

// Run watches until ctx is cancelled. The git directory is watched rather
// than HEAD itself because git replaces HEAD by renaming a lock file over it,
// which drops a watch on the file.
func (w *BranchWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.GitDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.GitDir, err)
	}

	if branch, err := git.ReadHEAD(w.GitDir); err == nil {
		w.last = branch
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != "HEAD" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.check(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			w.Logger.Warn("branch watcher error", "error", err)
		}
	}
}

// check re-reads HEAD and fires OnChange when the branch differs from the
// last one seen.
func (w *BranchWatcher) check(ctx context.Context) {
	branch, err := git.ReadHEAD(w.GitDir)
	if err != nil {
		// HEAD can be briefly missing mid-rename; the next event catches up.
		w.Logger.Debug("read HEAD", "error", err)
		return
	}
	if branch == w.last {
		return
	}
	w.Logger.Info("branch changed", "from", w.last, "to", branch)
	w.last = branch
	if err := w.OnChange(ctx, branch); err != nil {
		w.Logger.Error("branch change not recorded", "branch", branch, "error", err)
	}
}
