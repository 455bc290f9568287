package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/ptime/internal/llm"
	"github.com/joescharf/ptime/internal/models"
	"github.com/joescharf/ptime/internal/output"
	"github.com/joescharf/ptime/internal/report"
)

// reportOptions holds the flags shared by report and export.
type reportOptions struct {
	From      string
	To        string
	Project   string
	Format    string
	Summarize bool
}

var reportOpts reportOptions

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recorded time",
	Long: `Show recorded time.

Without --from/--to: every day, most recent first, split per branch.
With --from and --to (YYYY-MM-DD, both inclusive): total per project.

--summarize asks the configured Anthropic model for a short written
summary of the same report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context(), reportOpts)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOpts.From, "from", "", "First day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportOpts.To, "to", "", "Last day (YYYY-MM-DD)")
	reportCmd.Flags().StringVarP(&reportOpts.Project, "project", "p", "", "Only this project")
	reportCmd.Flags().StringVar(&reportOpts.Format, "format", "table", "Output format: table, json, csv, markdown")
	reportCmd.Flags().BoolVar(&reportOpts.Summarize, "summarize", false, "Add an LLM-written summary")
	rootCmd.AddCommand(reportCmd)
}

// hasRange reports whether either bound was given. A single bound is still
// a range request so ParseRange can reject the missing one.
func (o reportOptions) hasRange() bool {
	return o.From != "" || o.To != ""
}

// buildReport validates the range (before any query), then builds either
// the daily or the range report.
func buildReport(ctx context.Context, o reportOptions, loc *time.Location) (any, string, error) {
	if !o.hasRange() {
		s, err := getStore()
		if err != nil {
			return nil, "", err
		}
		ivs, err := s.FetchAll(ctx)
		if err != nil {
			return nil, "", err
		}
		return report.Daily(onlyProject(ivs, o.Project), loc), "", nil
	}

	dr, err := report.ParseRange(o.From, o.To, loc)
	if err != nil {
		return nil, "", err
	}
	s, err := getStore()
	if err != nil {
		return nil, "", err
	}
	ivs, err := s.FetchBetween(ctx, dr.StartMs(), dr.EndMs())
	if err != nil {
		return nil, "", err
	}
	window := dr.Start.Format(report.DateLayout) + " to " + dr.End.Format(report.DateLayout)
	return report.Range(onlyProject(ivs, o.Project), dr.Start, dr.End), window, nil
}

func onlyProject(ivs []*models.Interval, project string) []*models.Interval {
	if project == "" {
		return ivs
	}
	var out []*models.Interval
	for _, iv := range ivs {
		if iv.Project == project {
			out = append(out, iv)
		}
	}
	return out
}

func reportRun(ctx context.Context, o reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r, window, err := buildReport(ctx, o, time.Local)
	if err != nil {
		return err
	}

	switch rep := r.(type) {
	case *report.DailyReport:
		err = printDaily(rep, o.Format)
	case *report.RangeReport:
		err = printRange(rep, o.Format)
	}
	if err != nil {
		return err
	}

	if o.Summarize {
		return printSummary(ctx, r, window)
	}
	return nil
}

func printDaily(r *report.DailyReport, format string) error {
	switch format {
	case "json":
		return printJSON(r)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"Project", "Date", "Branch", "MsDuration", "Duration"})
		eachBranch(r, func(project, date string, b report.BranchTotal) {
			_ = w.Write([]string{project, date, b.Branch, strconv.FormatInt(b.MsDuration, 10), b.Duration})
		})
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Time by day")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Project | Date | Branch | Duration |")
		fmt.Fprintln(ui.Out, "|---------|------|--------|----------|")
		eachBranch(r, func(project, date string, b report.BranchTotal) {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s |\n", project, date, b.Branch, b.Duration)
		})
		return nil
	case "table", "":
		if len(r.Projects) == 0 {
			ui.Info("No time recorded yet. Start the daemon with 'ptime track'.")
			return nil
		}
		table := ui.Table("Project", "Date", "Branch", "Duration")
		eachBranch(r, func(project, date string, b report.BranchTotal) {
			_ = table.Append([]string{output.Cyan(project), date, b.Branch, b.Duration})
		})
		return table.Render()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func eachBranch(r *report.DailyReport, fn func(project, date string, b report.BranchTotal)) {
	for _, p := range r.Projects {
		for _, d := range p.Days {
			for _, b := range d.Branches {
				fn(p.Project, d.Date, b)
			}
		}
	}
}

func printRange(r *report.RangeReport, format string) error {
	start := r.StartDate.Format(report.DateLayout)
	end := r.EndDate.Format(report.DateLayout)

	switch format {
	case "json":
		return printJSON(r)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"Project", "StartDate", "EndDate", "MsDuration", "Duration"})
		for _, name := range r.ProjectNames() {
			t := r.Projects[name]
			_ = w.Write([]string{name, start, end, strconv.FormatInt(t.MsDuration, 10), t.Duration})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintf(ui.Out, "# Time from %s to %s\n\n", start, end)
		fmt.Fprintln(ui.Out, "| Project | Duration |")
		fmt.Fprintln(ui.Out, "|---------|----------|")
		for _, name := range r.ProjectNames() {
			fmt.Fprintf(ui.Out, "| %s | %s |\n", name, r.Projects[name].Duration)
		}
		return nil
	case "table", "":
		ui.Info("%s to %s", start, end)
		if len(r.Projects) == 0 {
			ui.Info("No time recorded in this range.")
			return nil
		}
		table := ui.Table("Project", "Duration")
		for _, name := range r.ProjectNames() {
			_ = table.Append([]string{output.Cyan(name), r.Projects[name].Duration})
		}
		return table.Render()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(ctx context.Context, r any, window string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	client := llm.NewClient(viper.GetString("anthropic.api_key"), viper.GetString("anthropic.model"))
	summary, err := client.Summarize(ctx, data, window)
	if err != nil {
		return fmt.Errorf("summarize report: %w", err)
	}
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, summary)
	return nil
}

func sortedProjects[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
