package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/joescharf/ptime/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the tracker and today's total",
	Long: `Open a live terminal view of the running daemon: what is being tracked,
for how long, and today's total. Space toggles tracking, q quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := tea.NewProgram(tui.New(daemonClient()), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
