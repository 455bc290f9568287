package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/ptime/internal/export"
)

var (
	exportOpts reportOptions
	exportDir  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write project-time.json into the project root",
	Long: `Write the time report to project-time.json at the root of the current
git repository (or --dir).

Without --from/--to the file holds every day split per branch; with both
it holds per-project totals for that range. Invalid dates abort before
anything is read or written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := exportDir
		if root == "" {
			root = projectRoot()
		}
		return exportRun(cmd.Context(), exportOpts, root)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.From, "from", "", "First day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportOpts.To, "to", "", "Last day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Directory to write into (default: repository root)")
	rootCmd.AddCommand(exportCmd)
}

// projectRoot is the git top-level of the working directory, or "" outside
// a repository.
func projectRoot() string {
	ws, err := currentWorkspace()
	if err != nil {
		ui.VerboseLog("%v", err)
		return ""
	}
	return ws.Root
}

func exportRun(ctx context.Context, o reportOptions, root string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r, _, err := buildReport(ctx, o, time.Local)
	if err != nil {
		return err
	}
	path, err := export.New(root).Export(r)
	if err != nil {
		return err
	}
	ui.Success("Exported to %s", path)
	return nil
}
