// Package tracker owns the single open interval. A Tracker is a two-state
// machine (Idle, Tracking) that opens and closes intervals in the store in
// response to activation, deactivation and branch-change events.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/ptime/internal/notify"
	"github.com/joescharf/ptime/internal/store"
)

// ErrInvalidContext is returned when a transition is requested with an
// empty project or branch.
var ErrInvalidContext = errors.New("project and branch must be non-empty")

// Context identifies what is being tracked.
type Context struct {
	Project string `json:"project"`
	Branch  string `json:"branch"`
}

func (c Context) valid() bool {
	return c.Project != "" && c.Branch != ""
}

func (c Context) String() string {
	return c.Project + "@" + c.Branch
}

// State is a point-in-time snapshot of the tracker.
type State struct {
	Tracking   bool      `json:"tracking"`
	Context    Context   `json:"context"`
	IntervalID string    `json:"interval_id,omitempty"`
	Since      time.Time `json:"since,omitzero"`
	// Pending is set while a close failed and is still owed to the store.
	Pending bool `json:"pending"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for transitions and storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithNotifier sets where storage failures are reported to the user.
func WithNotifier(n notify.Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// Tracker serializes every transition through one mutex, so a stop followed
// by a start is atomic with respect to concurrent callers.
type Tracker struct {
	store    store.Store
	now      func() time.Time
	log      *slog.Logger
	notifier notify.Notifier

	mu       sync.Mutex
	tracking bool
	current  Context // last known context, kept while Idle for OnActivate
	id       string
	since    time.Time
	pending  bool
	notice   string // failure message delivered once mu is released
}

// New returns an Idle tracker writing to s.
func New(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    s,
		now:      time.Now,
		log:      slog.Default(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a snapshot of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Tracking:   t.tracking,
		Context:    t.current,
		IntervalID: t.id,
		Since:      t.since,
		Pending:    t.pending,
	}
}

// Start begins tracking c. Starting the context already being tracked is a
// no-op; starting a different one closes the current interval first.
func (t *Tracker) Start(ctx context.Context, c Context) error {
	if !c.valid() {
		return ErrInvalidContext
	}
	t.mu.Lock()
	defer t.unlock()

	if t.tracking && t.current == c {
		return nil
	}
	return t.reopen(ctx, c)
}

// Activate starts tracking project and branch, filling an empty field from
// the last known context. The branch may only be inherited within the same
// project; a different project needs its own branch.
func (t *Tracker) Activate(ctx context.Context, project, branch string) error {
	t.mu.Lock()
	defer t.unlock()

	if project == "" {
		project = t.current.Project
	}
	if branch == "" {
		if project != t.current.Project {
			return fmt.Errorf("%w: branch required when switching to project %q", ErrInvalidContext, project)
		}
		branch = t.current.Branch
	}
	c := Context{Project: project, Branch: branch}
	if !c.valid() {
		return ErrInvalidContext
	}
	if t.tracking && t.current == c {
		return nil
	}
	return t.reopen(ctx, c)
}

// Stop closes the open interval. It is a no-op when Idle and nothing is
// pending.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.unlock()

	if !t.tracking && !t.pending {
		return nil
	}
	return t.close(ctx)
}

// SwitchContext moves tracking to branch within the current project. The
// interval is only cycled when the branch really differs. While Idle the
// branch is remembered for the next activation and nothing is opened.
func (t *Tracker) SwitchContext(ctx context.Context, branch string) error {
	if branch == "" {
		return ErrInvalidContext
	}
	t.mu.Lock()
	defer t.unlock()

	if t.current.Project == "" {
		return ErrInvalidContext
	}
	return t.switchBranch(ctx, branch)
}

// SwitchContextFor is SwitchContext for a branch change observed in
// project's repository. It is ignored unless project is the current
// context, so a repository that is no longer tracked cannot move another
// project onto its branch.
func (t *Tracker) SwitchContextFor(ctx context.Context, project, branch string) error {
	if project == "" || branch == "" {
		return ErrInvalidContext
	}
	t.mu.Lock()
	defer t.unlock()

	if t.current.Project != project {
		t.log.Debug("ignoring branch change for untracked project",
			"project", project, "branch", branch, "current", t.current.Project)
		return nil
	}
	return t.switchBranch(ctx, branch)
}

// switchBranch moves the current project to branch. Callers hold mu.
func (t *Tracker) switchBranch(ctx context.Context, branch string) error {
	if t.current.Branch == branch {
		return nil
	}

	next := Context{Project: t.current.Project, Branch: branch}
	if !t.tracking {
		t.log.Debug("branch changed while idle", "from", t.current.Branch, "to", branch)
		t.current = next
		return nil
	}
	return t.reopen(ctx, next)
}

// OnActivate resumes tracking the last known context.
func (t *Tracker) OnActivate(ctx context.Context) error {
	t.mu.Lock()
	c := t.current
	t.mu.Unlock()
	return t.Start(ctx, c)
}

// OnDeactivate is Stop.
func (t *Tracker) OnDeactivate(ctx context.Context) error {
	return t.Stop(ctx)
}

// OnContextChange is SwitchContext.
func (t *Tracker) OnContextChange(ctx context.Context, branch string) error {
	return t.SwitchContext(ctx, branch)
}

// BranchWatcherFor returns a branch-change callback bound to project, for
// a watcher on that project's repository.
func (t *Tracker) BranchWatcherFor(project string) func(ctx context.Context, branch string) error {
	return func(ctx context.Context, branch string) error {
		return t.SwitchContextFor(ctx, project, branch)
	}
}

// Remember records c as the last known context without opening anything.
func (t *Tracker) Remember(c Context) error {
	if !c.valid() {
		return ErrInvalidContext
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		t.current = c
	}
	return nil
}

// Shutdown stops tracking before the hosting process exits.
func (t *Tracker) Shutdown(ctx context.Context) error {
	return t.Stop(ctx)
}

// Recover closes intervals left open by a previous process that exited
// without stopping. They are closed at their own start, so downtime is never
// counted as work. Must be called before the first transition.
func (t *Tracker) Recover(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.unlock()

	open, err := t.store.OpenIntervals(ctx)
	if err != nil {
		return 0, t.fail("recover", err)
	}
	if len(open) == 0 {
		return 0, nil
	}
	for _, iv := range open {
		t.log.Warn("closing interval left open by a previous run",
			"id", iv.ID, "project", iv.Project, "branch", iv.Branch)
	}
	// The store clamps end to start, so closing at the epoch yields
	// zero-length intervals regardless of the wall clock.
	if err := t.store.CloseOpenInterval(ctx, time.UnixMilli(0)); err != nil {
		return 0, t.fail("recover", err)
	}
	return len(open), nil
}

// reopen closes whatever is open and opens c. The open is skipped when the
// close fails, so the store never holds two open intervals. Callers hold mu.
func (t *Tracker) reopen(ctx context.Context, c Context) error {
	if err := t.close(ctx); err != nil {
		t.current = c
		return err
	}

	now := t.now()
	id, err := t.store.OpenInterval(ctx, c.Project, c.Branch, now)
	t.current = c
	if err != nil {
		return t.fail("start "+c.String(), err)
	}

	t.tracking = true
	t.id = id
	t.since = now
	t.log.Info("tracking started", "project", c.Project, "branch", c.Branch, "id", id)
	return nil
}

// close ends the open interval and moves to Idle even when the store call
// fails; in that case pending stays set so the next transition retries.
// Callers hold mu.
func (t *Tracker) close(ctx context.Context) error {
	wasTracking, id, since := t.tracking, t.id, t.since
	t.tracking = false
	t.id = ""
	t.since = time.Time{}

	now := t.now()
	if err := t.store.CloseOpenInterval(ctx, now); err != nil {
		t.pending = true
		return t.fail("stop "+t.current.String(), err)
	}
	t.pending = false
	if wasTracking {
		t.log.Info("tracking stopped", "project", t.current.Project, "branch", t.current.Branch,
			"id", id, "elapsed", now.Sub(since).Round(time.Second))
	}
	return nil
}

// fail logs err and queues a notification for unlock. Callers hold mu.
func (t *Tracker) fail(op string, err error) error {
	t.log.Error("tracking transition failed", "op", op, "error", err)
	t.notice = fmt.Sprintf("Could not record time (%s): %v", op, err)
	return fmt.Errorf("%s: %w", op, err)
}

// unlock releases mu and then delivers any queued notification, so a slow
// notifier never holds up other transitions.
func (t *Tracker) unlock() {
	msg := t.notice
	t.notice = ""
	t.mu.Unlock()
	if msg != "" {
		t.notifier.Notify("ptime", msg)
	}
}
