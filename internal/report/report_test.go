package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/joescharf/ptime/internal/models"
)

func closed(project, branch string, start, end int64) *models.Interval {
	return &models.Interval{Project: project, Branch: branch, Start: start, End: &end}
}

func open(project, branch string, start int64) *models.Interval {
	return &models.Interval{Project: project, Branch: branch, Start: start}
}

func TestDaily_TwoDays(t *testing.T) {
	ivs := []*models.Interval{
		closed("P", "main", 0, 3_600_000),
		closed("P", "dev", 90_000_000, 93_600_000),
	}

	r := Daily(ivs, time.UTC)

	require.Len(t, r.Projects, 1)
	p := r.Projects[0]
	assert.Equal(t, "P", p.Project)
	require.Len(t, p.Days, 2)

	assert.Equal(t, "1970-01-02", p.Days[0].Date, "most recent day first")
	assert.Equal(t, []BranchTotal{{Branch: "dev", MsDuration: 3_600_000, Duration: "1h"}}, p.Days[0].Branches)
	assert.Equal(t, "1970-01-01", p.Days[1].Date)
	assert.Equal(t, []BranchTotal{{Branch: "main", MsDuration: 3_600_000, Duration: "1h"}}, p.Days[1].Branches)
}

func TestDaily_TwoDaysInAnyZone(t *testing.T) {
	ivs := []*models.Interval{
		closed("P", "main", 0, 3_600_000),
		closed("P", "dev", 90_000_000, 93_600_000),
	}
	for _, loc := range []*time.Location{time.FixedZone("west", -11*3600), time.FixedZone("east", 14*3600)} {
		r := Daily(ivs, loc)
		require.Len(t, r.Projects, 1)
		assert.Len(t, r.Projects[0].Days, 2, loc.String())
	}
}

func TestDaily_BranchesSortedAndOpenBucketsKept(t *testing.T) {
	ivs := []*models.Interval{
		closed("P", "zeta", 1_000, 61_000),
		closed("P", "alpha", 2_000, 122_000),
		closed("P", "alpha", 200_000, 260_000),
		open("P", "wip", 3_000),
		open("Q", "main", 5_000),
	}

	r := Daily(ivs, time.UTC)

	require.Len(t, r.Projects, 2)
	assert.Equal(t, "P", r.Projects[0].Project)
	assert.Equal(t, "Q", r.Projects[1].Project)

	branches := r.Projects[0].Days[0].Branches
	require.Len(t, branches, 3)
	assert.Equal(t, "alpha", branches[0].Branch)
	assert.Equal(t, int64(180_000), branches[0].MsDuration)
	assert.Equal(t, "3m", branches[0].Duration)
	assert.Equal(t, "wip", branches[1].Branch)
	assert.Zero(t, branches[1].MsDuration)
	assert.Equal(t, "0m", branches[1].Duration)
	assert.Equal(t, "zeta", branches[2].Branch)

	q := r.Projects[1].Days[0].Branches
	require.Len(t, q, 1)
	assert.Zero(t, q[0].MsDuration)
}

func TestDaily_IgnoresEndBeforeStart(t *testing.T) {
	r := Daily([]*models.Interval{closed("P", "main", 10_000, 5_000)}, time.UTC)
	assert.Zero(t, r.TotalMs())
}

func TestDaily_Empty(t *testing.T) {
	r := Daily(nil, time.UTC)
	assert.Empty(t, r.Projects)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestDaily_DoesNotMutateInput(t *testing.T) {
	ivs := []*models.Interval{closed("P", "main", 0, 1_000), open("P", "dev", 5)}
	Daily(ivs, time.UTC)
	assert.Nil(t, ivs[1].End)
	assert.Equal(t, int64(1_000), *ivs[0].End)
}

func TestDaily_JSONKeepsOrder(t *testing.T) {
	ivs := []*models.Interval{
		closed("b-proj", "main", 0, 60_000),
		closed("a-proj", "main", 0, 60_000),
		closed("a-proj", "main", 90_000_000, 90_060_000),
	}

	data, err := json.Marshal(Daily(ivs, time.UTC))
	require.NoError(t, err)
	s := string(data)

	assert.Less(t, strings.Index(s, `"a-proj"`), strings.Index(s, `"b-proj"`))
	assert.Less(t, strings.Index(s, `"1970-01-02"`), strings.Index(s, `"1970-01-01"`))
	assert.Contains(t, s, `{"branch":"main","msDuration":60000,"duration":"1m"}`)
}

func TestDaily_SumEqualsClosedDurations(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "n")
		var ivs []*models.Interval
		var want int64
		for i := 0; i < n; i++ {
			start := rapid.Int64Range(0, 10*86_400_000).Draw(t, "start")
			project := rapid.SampledFrom([]string{"P", "Q", "R"}).Draw(t, "project")
			branch := rapid.SampledFrom([]string{"main", "dev"}).Draw(t, "branch")
			if rapid.Bool().Draw(t, "open") {
				ivs = append(ivs, open(project, branch, start))
				continue
			}
			dur := rapid.Int64Range(0, 8*3_600_000).Draw(t, "dur")
			ivs = append(ivs, closed(project, branch, start, start+dur))
			want += dur
		}

		if got := Daily(ivs, time.UTC).TotalMs(); got != want {
			t.Fatalf("leaf sum %d, want %d", got, want)
		}
	})
}

func TestRange_SumsPerProject(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	ivs := []*models.Interval{
		closed("P", "main", 0, 1_800_000),
		closed("P", "dev", 5_000_000, 6_800_000),
		open("Q", "main", 10),
	}

	r := Range(ivs, start, end)

	assert.Equal(t, start, r.StartDate)
	assert.Equal(t, end, r.EndDate)
	assert.Equal(t, ProjectTotal{MsDuration: 3_600_000, Duration: "1h"}, r.Projects["P"])
	assert.Equal(t, ProjectTotal{MsDuration: 0, Duration: "0m"}, r.Projects["Q"])
	assert.Equal(t, []string{"P", "Q"}, r.ProjectNames())
}

func TestRange_EmptyEchoesDates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Range(nil, start, start)

	assert.Empty(t, r.Projects)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startDate":"2024-01-01T00:00:00Z","endDate":"2024-01-01T00:00:00Z"}`, string(data))
}

func TestRange_JSONShape(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	r := Range([]*models.Interval{closed("P", "main", 0, 5_400_000)}, start, end)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"P": {"msDuration": 5400000, "duration": "1h 30m"},
		"startDate": "2024-01-01T00:00:00Z",
		"endDate": "2024-01-02T00:00:00Z"
	}`, string(data))
	assert.True(t, strings.HasPrefix(string(data), `{"P":`))
}

// Widening the window over a fixed interval set never lowers a total.
func TestRange_MonotonicInWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		var ivs []*models.Interval
		for i := 0; i < n; i++ {
			start := rapid.Int64Range(0, 1_000_000).Draw(t, "start")
			dur := rapid.Int64Range(0, 100_000).Draw(t, "dur")
			ivs = append(ivs, closed(rapid.SampledFrom([]string{"P", "Q"}).Draw(t, "p"), "main", start, start+dur))
		}
		lo := rapid.Int64Range(0, 1_000_000).Draw(t, "lo")
		hi := rapid.Int64Range(lo, 1_000_000).Draw(t, "hi")
		widen := rapid.Int64Range(0, 500_000).Draw(t, "widen")

		narrow := Range(within(ivs, lo, hi), time.Time{}, time.Time{})
		wide := Range(within(ivs, lo-widen, hi+widen), time.Time{}, time.Time{})

		for project, total := range narrow.Projects {
			if wide.Projects[project].MsDuration < total.MsDuration {
				t.Fatalf("project %s dropped from %d to %d", project, total.MsDuration, wide.Projects[project].MsDuration)
			}
		}
	})
}

func within(ivs []*models.Interval, lo, hi int64) []*models.Interval {
	var out []*models.Interval
	for _, iv := range ivs {
		if iv.Start >= lo && iv.Start <= hi {
			out = append(out, iv)
		}
	}
	return out
}

func TestTodayTotal(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, loc)
	today := time.Date(2024, 3, 10, 9, 0, 0, 0, loc).UnixMilli()
	yesterday := time.Date(2024, 3, 9, 23, 0, 0, 0, loc).UnixMilli()

	ivs := []*models.Interval{
		closed("P", "main", today, today+1_800_000),
		closed("Q", "main", today+3_600_000, today+4_500_000),
		closed("P", "main", yesterday, yesterday+7_200_000),
		open("P", "main", today+10_000_000),
	}

	assert.Equal(t, int64(2_700_000), TodayTotal(ivs, now, loc))
	assert.Equal(t, map[string]int64{"P": 1_800_000, "Q": 900_000}, TodayByProject(ivs, now, loc))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("x", 2*3600)
	got := StartOfDay(time.Date(2024, 5, 6, 23, 59, 0, 0, loc), loc)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, loc), got)
}

func TestElapsedToday(t *testing.T) {
	loc := time.FixedZone("x", -5*3600)
	midnight := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	now := midnight.Add(15 * time.Minute)

	assert.Equal(t, int64(15*60_000), ElapsedToday(midnight.Add(-30*time.Minute), now, loc))
	assert.Equal(t, int64(5*60_000), ElapsedToday(midnight.Add(10*time.Minute), now, loc))
	assert.Zero(t, ElapsedToday(now.Add(time.Minute), now, loc))
}
