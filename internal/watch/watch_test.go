package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ptime/internal/store/storetest"
	"github.com/joescharf/ptime/internal/tracker"
)

type branchLog struct {
	mu       sync.Mutex
	branches []string
}

func (b *branchLog) record(_ context.Context, branch string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.branches = append(b.branches, branch)
	return nil
}

func (b *branchLog) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.branches...)
}

func writeHEAD(t *testing.T, gitDir, branch string) {
	t.Helper()
	// Mimic git: write a lock file and rename it over HEAD.
	lock := filepath.Join(gitDir, "HEAD.lock")
	require.NoError(t, os.WriteFile(lock, []byte("ref: refs/heads/"+branch+"\n"), 0o644))
	require.NoError(t, os.Rename(lock, filepath.Join(gitDir, "HEAD")))
}

func TestBranchWatcher_ReportsRealChangesOnly(t *testing.T) {
	gitDir := t.TempDir()
	writeHEAD(t, gitDir, "main")

	log := &branchLog{}
	w := NewBranchWatcher(gitDir, log.record)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	writeHEAD(t, gitDir, "feature/x")
	assert.Eventually(t, func() bool {
		return len(log.snapshot()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// Rewriting the same branch is not a change.
	writeHEAD(t, gitDir, "feature/x")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"feature/x"}, log.snapshot())

	writeHEAD(t, gitDir, "main")
	assert.Eventually(t, func() bool {
		return len(log.snapshot()) == 2
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"feature/x", "main"}, log.snapshot())

	cancel()
	require.NoError(t, <-done)
}

func TestBranchWatcher_MissingDir(t *testing.T) {
	w := NewBranchWatcher(filepath.Join(t.TempDir(), "nope"), (&branchLog{}).record)
	assert.Error(t, w.Run(context.Background()))
}

func TestBranchWatcher_OnlyMovesItsOwnProject(t *testing.T) {
	gitDir := t.TempDir()
	writeHEAD(t, gitDir, "main")

	mem := storetest.New()
	tr := tracker.New(mem, tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Start(ctx, tracker.Context{Project: "ptime", Branch: "main"}))

	w := NewBranchWatcher(gitDir, tr.BranchWatcherFor("ptime"))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeHEAD(t, gitDir, "dev")
	assert.Eventually(t, func() bool {
		return tr.State().Context.Branch == "dev"
	}, 2*time.Second, 20*time.Millisecond)

	// Tracking moves to another project; checkouts here no longer apply.
	website := tracker.Context{Project: "website", Branch: "feat"}
	require.NoError(t, tr.Start(ctx, website))
	writeHEAD(t, gitDir, "hotfix")
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, website, tr.State().Context)
	open, err := mem.OpenIntervals(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "website", open[0].Project)
	assert.Equal(t, "feat", open[0].Branch)

	cancel()
	require.NoError(t, <-done)
}
