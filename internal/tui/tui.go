// Package tui is the live status view behind `ptime watch`: what is being
// tracked, for how long, and today's total, refreshed every second.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/ptime/internal/api"
	"github.com/joescharf/ptime/internal/humanize"
	"github.com/joescharf/ptime/internal/report"
	"github.com/joescharf/ptime/internal/tracker"
)

// Source is the daemon the view polls and controls. *api.Client implements it.
type Source interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	Activate(ctx context.Context, project, branch string) (*tracker.State, error)
	Deactivate(ctx context.Context) (*tracker.State, error)
}

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	trackingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const refreshEvery = time.Second

// ── Messages ────────────

type refreshMsg time.Time

type statusMsg struct {
	status *api.StatusResponse
	err    error
}

// ── Model ────────────────────

// Model is the root Bubble Tea model.
type Model struct {
	source  Source
	now     func() time.Time
	loc     *time.Location
	spinner spinner.Model

	status *api.StatusResponse
	err    error
	width  int
}

// New creates a view over src.
func New(src Source) Model {
	return Model{
		source: src,
		now:    time.Now,
		loc:    time.Local,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(trackingStyle),
		),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		st, err := m.source.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

// toggle activates when idle and deactivates when tracking.
func (m Model) toggle() tea.Cmd {
	tracking := m.status != nil && m.status.Tracking
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var err error
		if tracking {
			_, err = m.source.Deactivate(ctx)
		} else {
			_, err = m.source.Activate(ctx, "", "")
		}
		if err != nil {
			return statusMsg{err: err}
		}
		st, err := m.source.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			return m, m.toggle()
		case "r":
			return m, m.fetch()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.fetch(), tick())

	case statusMsg:
		m.err = msg.err
		if msg.status != nil {
			m.status = msg.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render("ptime")
	if m.width > 0 {
		title = titleStyle.Width(m.width).Render("ptime")
	}
	b.WriteString(title + "\n\n")

	switch {
	case m.status == nil && m.err != nil:
		b.WriteString(errorStyle.Render("daemon unreachable: "+m.err.Error()) + "\n")
		b.WriteString(hintStyle.Render("start it with `ptime track`") + "\n")
	case m.status == nil:
		b.WriteString(m.spinner.View() + " connecting…\n")
	default:
		m.writeStatus(&b)
		if m.err != nil {
			b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
		}
	}

	b.WriteString("\n" + hintStyle.Render("space toggle  r refresh  q quit"))
	return b.String()
}

func (m Model) writeStatus(b *strings.Builder) {
	st := m.status
	running := m.running()
	today := st.TodayMs + m.runningToday()

	switch {
	case st.Tracking:
		fmt.Fprintf(b, "%s %s %s\n", m.spinner.View(), trackingStyle.Render("tracking"), st.Context)
		fmt.Fprintf(b, "%s %s\n", labelStyle.Render("session"), humanize.Format(running))
	case st.Pending:
		fmt.Fprintf(b, "%s last close not yet saved\n", pendingStyle.Render("pending"))
	default:
		line := idleStyle.Render("idle")
		if st.Context.Project != "" {
			line += idleStyle.Render(" (last: " + st.Context.String() + ")")
		}
		b.WriteString(line + "\n")
	}

	// The running session is not in the store's total until it closes.
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("today  "), humanize.Format(today))
}

// running is the elapsed time of the open session, or zero.
func (m Model) running() int64 {
	if m.status == nil || !m.status.Tracking || m.status.Since.IsZero() {
		return 0
	}
	return max(m.now().Sub(m.status.Since).Milliseconds(), 0)
}

// runningToday is the part of the open session since local midnight.
func (m Model) runningToday() int64 {
	if m.running() == 0 {
		return 0
	}
	return report.ElapsedToday(m.status.Since, m.now(), m.loc)
}
