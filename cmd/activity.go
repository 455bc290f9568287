package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/ptime/internal/output"
	"github.com/joescharf/ptime/internal/tracker"
)

var (
	activateProject string
	activateBranch  string
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Start tracking (editor focused, terminal active)",
	Long: `Tell the daemon work has resumed.

Project and branch default to the git repository of the working
directory; outside a repository the daemon's last context is resumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return activateRun(cmd.Context(), activateProject, activateBranch)
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Stop tracking (editor blurred, terminal idle)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return deactivateRun(cmd.Context())
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <branch>",
	Short: "Report a branch change to the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return switchRun(cmd.Context(), args[0])
	},
}

func init() {
	activateCmd.Flags().StringVarP(&activateProject, "project", "p", "", "Project name (default: repository name)")
	activateCmd.Flags().StringVarP(&activateBranch, "branch", "b", "", "Branch name (default: current branch)")
	rootCmd.AddCommand(activateCmd, deactivateCmd, switchCmd)
}

func activateRun(ctx context.Context, project, branch string) error {
	if project == "" || branch == "" {
		if ws, err := currentWorkspace(); err == nil {
			if project == "" {
				project = ws.Project
			}
			if branch == "" {
				branch = ws.Branch
			}
		} else {
			ui.VerboseLog("no repository context: %v", err)
		}
	}

	st, err := daemonClient().Activate(ctx, project, branch)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

func deactivateRun(ctx context.Context) error {
	st, err := daemonClient().Deactivate(ctx)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

func switchRun(ctx context.Context, branch string) error {
	st, err := daemonClient().SwitchBranch(ctx, branch)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

func printState(st *tracker.State) {
	state := output.TrackingState(st.Tracking, st.Pending)
	if st.Context.Project == "" {
		ui.Info("%s", state)
		return
	}
	ui.Info("%s %s", state, output.Cyan(st.Context.String()))
}
