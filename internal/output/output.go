// Package output renders CLI messages and tables.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI writes prefixed, colored messages. Informational output goes to Out and
// problems go to ErrOut so piped JSON stays clean.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI on stdout/stderr.
func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlack).Sprint("  →")

	cyan   = color.New(color.FgHiCyan).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Bold returns a bold string.
func Bold(s string) string { return bold(s) }

// TrackingState renders the tracker's state word: green while recording,
// yellow when a close is still owed to the store, plain when idle.
func TrackingState(tracking, pending bool) string {
	switch {
	case tracking:
		return green("tracking")
	case pending:
		return yellow("pending")
	default:
		return "idle"
	}
}

func (u *UI) Info(format string, a ...any) {
	u.line(u.Out, infoPrefix, format, a...)
}

func (u *UI) Success(format string, a ...any) {
	u.line(u.Out, successPrefix, format, a...)
}

func (u *UI) Warning(format string, a ...any) {
	u.line(u.ErrOut, warningPrefix, format, a...)
}

func (u *UI) Error(format string, a ...any) {
	u.line(u.ErrOut, errorPrefix, format, a...)
}

// VerboseLog prints only when --verbose is set.
func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		u.line(u.Out, verbosePrefix, format, a...)
	}
}

func (u *UI) line(w io.Writer, prefix, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, a...))
}

// Table returns a borderless, left-aligned table writing to Out.
func (u *UI) Table(headers ...string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
