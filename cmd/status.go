package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/ptime/internal/api"
	"github.com/joescharf/ptime/internal/humanize"
	"github.com/joescharf/ptime/internal/output"
	"github.com/joescharf/ptime/internal/report"
	"github.com/joescharf/ptime/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is being tracked and today's total",
	Long: `Show the daemon's tracking state and the time recorded today.

When the daemon is not running, today's total is read straight from the
database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	st, err := daemonClient().Status(ctx)
	if err == nil {
		printDaemonStatus(st, time.Now())
		return nil
	}
	ui.VerboseLog("daemon: %v", err)

	if pid, running := pidFile().IsRunning(); running {
		ui.Warning("daemon (pid %d) is running but not answering at %s", pid, viper.GetString("daemon.addr"))
	} else {
		ui.Warning("daemon not running (start it with 'ptime track')")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	return printStoreStatus(ctx, s, time.Now(), time.Local)
}

func printDaemonStatus(st *api.StatusResponse, now time.Time) {
	// running is the part of the open interval that falls on today.
	var running int64
	switch {
	case st.Tracking:
		elapsed := max(now.Sub(st.Since).Milliseconds(), 0)
		running = report.ElapsedToday(st.Since, now, time.Local)
		ui.Info("%s %s for %s", output.TrackingState(true, false), output.Cyan(st.Context.String()), humanize.Format(elapsed))
	case st.Pending:
		ui.Warning("%s: the last interval could not be closed yet", output.TrackingState(false, true))
	default:
		printState(&st.State)
	}
	ui.Info("today %s", output.Bold(humanize.Format(st.TodayMs+running)))
}

// printStoreStatus reports today's closed time and any open interval
// directly from the store.
func printStoreStatus(ctx context.Context, s store.Store, now time.Time, loc *time.Location) error {
	ivs, err := s.FetchAfter(ctx, report.StartOfDay(now, loc).UnixMilli()-1)
	if err != nil {
		return err
	}
	open, err := s.OpenIntervals(ctx)
	if err != nil {
		return err
	}
	for _, iv := range open {
		ui.Info("open interval %s@%s since %s", iv.Project, iv.Branch,
			time.UnixMilli(iv.Start).In(loc).Format(time.Kitchen))
	}

	byProject := report.TodayByProject(ivs, now, loc)
	if len(byProject) == 0 {
		ui.Info("today %s", output.Bold(humanize.Format(0)))
		return nil
	}

	table := ui.Table("Project", "Today")
	var total int64
	for _, p := range sortedProjects(byProject) {
		total += byProject[p]
		_ = table.Append([]string{p, humanize.Format(byProject[p])})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(ui.Out)
	ui.Info("today %s", output.Bold(humanize.Format(total)))
	return nil
}
