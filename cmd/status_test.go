package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ptime/internal/api"
	"github.com/joescharf/ptime/internal/models"
	"github.com/joescharf/ptime/internal/store/storetest"
	"github.com/joescharf/ptime/internal/tracker"
)

func TestStatus_FromDaemon(t *testing.T) {
	_, out := testEnv(t)
	startDaemon(t)

	require.NoError(t, activateRun(t.Context(), "ptime", "main"))
	out.Reset()

	require.NoError(t, statusRun(t.Context()))
	assert.Contains(t, out.String(), "ptime@main")
	assert.Contains(t, out.String(), "today")
}

func TestStatus_FallsBackToStore(t *testing.T) {
	_, out := testEnv(t)
	now := time.Now()
	start := now.Add(-2 * time.Minute).UnixMilli()
	if time.UnixMilli(start).Day() != now.Day() {
		t.Skip("too close to midnight")
	}
	mem := storetest.New()
	mem.Seed(closedIv("ptime", "main", start, start+60_000))
	dataStore = mem

	require.NoError(t, statusRun(t.Context()))
	assert.Contains(t, out.String(), "ptime")
	assert.Contains(t, out.String(), "today 1m")
}

func TestPrintStoreStatus_OpenInterval(t *testing.T) {
	_, out := testEnv(t)
	loc := time.UTC
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	mem := storetest.New()
	mem.Seed(&models.Interval{Project: "ptime", Branch: "dev", Start: now.Add(-time.Hour).UnixMilli()})

	require.NoError(t, printStoreStatus(t.Context(), mem, now, loc))
	assert.Contains(t, out.String(), "open interval ptime@dev")
	assert.Contains(t, out.String(), "today 0m")
}

func TestPrintDaemonStatus(t *testing.T) {
	_, out := testEnv(t)
	since := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	printDaemonStatus(&api.StatusResponse{
		State: tracker.State{
			Tracking: true,
			Context:  tracker.Context{Project: "ptime", Branch: "main"},
			Since:    since,
		},
		TodayMs: 30 * 60_000,
	}, since.Add(45*time.Minute))

	assert.Contains(t, out.String(), "ptime@main for 45m")
	assert.Contains(t, out.String(), "today 1h 15m")
}

func TestPrintDaemonStatus_TodayStartsAtMidnight(t *testing.T) {
	_, out := testEnv(t)
	midnight := time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)

	printDaemonStatus(&api.StatusResponse{
		State: tracker.State{
			Tracking: true,
			Context:  tracker.Context{Project: "ptime", Branch: "main"},
			Since:    midnight.Add(-30 * time.Minute),
		},
	}, midnight.Add(15*time.Minute))

	assert.Contains(t, out.String(), "ptime@main for 45m")
	assert.Contains(t, out.String(), "today 15m")
}
