// Package report derives human-facing summaries from the interval log. Every
// function here is pure: it reads a snapshot of intervals, never mutates it,
// and returns the same report for the same input.
package report

import (
	"encoding/json"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/joescharf/ptime/internal/humanize"
	"github.com/joescharf/ptime/internal/models"
)

// DateLayout is the calendar-day bucket key format.
const DateLayout = "2006-01-02"

// BranchTotal is the time spent on one branch during one day.
type BranchTotal struct {
	Branch     string `json:"branch"`
	MsDuration int64  `json:"msDuration"`
	Duration   string `json:"duration"`
}

// DayTotals holds the branches worked on during one local day, ordered by
// branch name.
type DayTotals struct {
	Date     string
	Branches []BranchTotal
}

// ProjectDays holds one project's days, most recent first.
type ProjectDays struct {
	Project string
	Days    []DayTotals
}

// DailyReport is the per-project, per-day, per-branch breakdown. It
// marshals to {"project": {"YYYY-MM-DD": [{branch, msDuration, duration}]}}
// with projects ascending, dates descending and branches ascending.
type DailyReport struct {
	Projects []ProjectDays
}

// MarshalJSON keeps the report's ordering, which a plain Go map would lose.
func (r DailyReport) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, *orderedmap.OrderedMap[string, []BranchTotal]]()
	for _, p := range r.Projects {
		days := orderedmap.New[string, []BranchTotal]()
		for _, d := range p.Days {
			days.Set(d.Date, d.Branches)
		}
		out.Set(p.Project, days)
	}
	return json.Marshal(out)
}

// TotalMs sums every branch entry in the report.
func (r DailyReport) TotalMs() int64 {
	var total int64
	for _, p := range r.Projects {
		for _, d := range p.Days {
			for _, b := range d.Branches {
				total += b.MsDuration
			}
		}
	}
	return total
}

// Daily builds the per-project/per-day/per-branch breakdown. Days are
// derived from each interval's start in loc. Open intervals create their
// bucket but add no time.
func Daily(intervals []*models.Interval, loc *time.Location) *DailyReport {
	if loc == nil {
		loc = time.Local
	}

	// project -> date -> branch -> ms
	buckets := map[string]map[string]map[string]int64{}
	for _, iv := range intervals {
		days, ok := buckets[iv.Project]
		if !ok {
			days = map[string]map[string]int64{}
			buckets[iv.Project] = days
		}
		date := LocalDate(iv.Start, loc)
		branches, ok := days[date]
		if !ok {
			branches = map[string]int64{}
			days[date] = branches
		}
		branches[iv.Branch] += iv.DurationMs()
	}

	report := &DailyReport{Projects: make([]ProjectDays, 0, len(buckets))}
	for _, project := range sortedKeys(buckets) {
		days := buckets[project]
		dates := sortedKeys(days)
		// YYYY-MM-DD sorts lexicographically in date order.
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		pd := ProjectDays{Project: project, Days: make([]DayTotals, 0, len(dates))}
		for _, date := range dates {
			branches := days[date]
			dt := DayTotals{Date: date}
			for _, branch := range sortedKeys(branches) {
				ms := branches[branch]
				dt.Branches = append(dt.Branches, BranchTotal{
					Branch:     branch,
					MsDuration: ms,
					Duration:   humanize.Format(ms),
				})
			}
			pd.Days = append(pd.Days, dt)
		}
		report.Projects = append(report.Projects, pd)
	}
	return report
}

// ProjectTotal is one project's summed time over a range.
type ProjectTotal struct {
	MsDuration int64  `json:"msDuration"`
	Duration   string `json:"duration"`
}

// RangeReport sums time per project over a date range. It marshals to
// {"project": {msDuration, duration}, ..., "startDate": ..., "endDate": ...}.
type RangeReport struct {
	StartDate time.Time
	EndDate   time.Time
	Projects  map[string]ProjectTotal
}

// MarshalJSON writes projects in name order followed by the two dates.
func (r RangeReport) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	for _, name := range sortedKeys(r.Projects) {
		out.Set(name, r.Projects[name])
	}
	out.Set("startDate", r.StartDate)
	out.Set("endDate", r.EndDate)
	return json.Marshal(out)
}

// ProjectNames returns the report's projects in name order.
func (r RangeReport) ProjectNames() []string {
	return sortedKeys(r.Projects)
}

// Range sums closed-interval time per project. The intervals are expected to
// be already restricted to the window (see store.Store.FetchBetween); start
// and end are echoed back unchanged.
func Range(intervals []*models.Interval, start, end time.Time) *RangeReport {
	r := &RangeReport{
		StartDate: start,
		EndDate:   end,
		Projects:  map[string]ProjectTotal{},
	}
	for project, ms := range Totals(intervals) {
		r.Projects[project] = ProjectTotal{MsDuration: ms, Duration: humanize.Format(ms)}
	}
	return r
}

// Totals sums closed-interval time per project. Every project present in
// the input gets an entry, even if all its intervals are open.
func Totals(intervals []*models.Interval) map[string]int64 {
	totals := map[string]int64{}
	for _, iv := range intervals {
		totals[iv.Project] += iv.DurationMs()
	}
	return totals
}

// TodayTotal sums closed-interval time for intervals that started on now's
// local day.
func TodayTotal(intervals []*models.Interval, now time.Time, loc *time.Location) int64 {
	var total int64
	for _, ms := range TodayByProject(intervals, now, loc) {
		total += ms
	}
	return total
}

// TodayByProject is TodayTotal split per project.
func TodayByProject(intervals []*models.Interval, now time.Time, loc *time.Location) map[string]int64 {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(DateLayout)
	totals := map[string]int64{}
	for _, iv := range intervals {
		if LocalDate(iv.Start, loc) == today {
			totals[iv.Project] += iv.DurationMs()
		}
	}
	return totals
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ElapsedToday is the part of [since, now] that falls on now's local day,
// in milliseconds.
func ElapsedToday(since, now time.Time, loc *time.Location) int64 {
	if midnight := StartOfDay(now, loc); since.Before(midnight) {
		since = midnight
	}
	return max(now.Sub(since).Milliseconds(), 0)
}

// LocalDate formats a millisecond timestamp as YYYY-MM-DD in loc.
func LocalDate(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(DateLayout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
