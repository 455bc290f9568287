package cmd

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ptime/internal/models"
	"github.com/joescharf/ptime/internal/report"
	"github.com/joescharf/ptime/internal/store/storetest"
)

func localMs(day, hour, minute int) int64 {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.Local).UnixMilli()
}

func closedIv(project, branch string, start, end int64) *models.Interval {
	return &models.Interval{Project: project, Branch: branch, Start: start, End: &end}
}

// seedStore installs an in-memory store with two days of work.
func seedStore(t *testing.T) *storetest.Memory {
	t.Helper()
	mem := storetest.New()
	mem.Seed(
		closedIv("ptime", "main", localMs(10, 9, 0), localMs(10, 10, 0)),
		closedIv("ptime", "feature/export", localMs(10, 11, 0), localMs(10, 11, 45)),
		closedIv("website", "main", localMs(9, 14, 0), localMs(9, 16, 0)),
	)
	dataStore = mem
	return mem
}

func TestReport_DailyTable(t *testing.T) {
	_, out := testEnv(t)
	seedStore(t)

	require.NoError(t, reportRun(t.Context(), reportOptions{Format: "table"}))

	s := out.String()
	assert.Contains(t, s, "ptime")
	assert.Contains(t, s, "feature/export")
	assert.Contains(t, s, "45m")
	assert.Contains(t, s, "2024-03-09")
	assert.Contains(t, s, "2h")
}

func TestReport_DailyJSON(t *testing.T) {
	_, out := testEnv(t)
	seedStore(t)

	require.NoError(t, reportRun(t.Context(), reportOptions{Format: "json", Project: "website"}))
	assert.JSONEq(t, `{"website": {"2024-03-09": [
		{"branch":"main","msDuration":7200000,"duration":"2h"}
	]}}`, out.String())
}

func TestReport_RangeCSV(t *testing.T) {
	_, out := testEnv(t)
	seedStore(t)

	require.NoError(t, reportRun(t.Context(), reportOptions{From: "2024-03-10", To: "2024-03-10", Format: "csv"}))
	assert.Equal(t,
		"Project,StartDate,EndDate,MsDuration,Duration\n"+
			"ptime,2024-03-10,2024-03-10,6300000,1h 45m\n",
		out.String())
}

func TestReport_RangeMarkdown(t *testing.T) {
	_, out := testEnv(t)
	seedStore(t)

	require.NoError(t, reportRun(t.Context(), reportOptions{From: "2024-03-01", To: "2024-03-31", Format: "markdown"}))
	assert.Contains(t, out.String(), "# Time from 2024-03-01 to 2024-03-31")
	assert.Contains(t, out.String(), "| website | 2h |")
}

func TestReport_Empty(t *testing.T) {
	_, out := testEnv(t)
	dataStore = storetest.New()

	require.NoError(t, reportRun(t.Context(), reportOptions{Format: "table"}))
	assert.Contains(t, out.String(), "No time recorded")
}

func TestReport_ValidationBeforeQuery(t *testing.T) {
	testEnv(t)
	mem := seedStore(t)
	mem.SetErrors(nil, nil, errors.New("store must not be queried"))

	for _, o := range []reportOptions{
		{From: "2024-03-01"},
		{To: "2024-03-01"},
		{From: "2024-13-01", To: "2024-12-01"},
		{From: "2024-03-02", To: "2024-03-01"},
	} {
		err := reportRun(t.Context(), o)
		var ve *report.ValidationError
		assert.True(t, errors.As(err, &ve), "%+v: %v", o, err)
	}
}

func TestReport_UnknownFormat(t *testing.T) {
	testEnv(t)
	seedStore(t)

	err := reportRun(t.Context(), reportOptions{Format: "xml"})
	assert.ErrorContains(t, err, "unknown format")
}

func TestBuildReport_RangeWindow(t *testing.T) {
	testEnv(t)
	seedStore(t)

	r, window, err := buildReport(t.Context(), reportOptions{From: "2024-03-09", To: "2024-03-10"}, time.Local)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09 to 2024-03-10", window)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ptime":{"msDuration":6300000,"duration":"1h 45m"}`)
}
