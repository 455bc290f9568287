package cmd

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ptime/internal/api"
	"github.com/joescharf/ptime/internal/store/storetest"
	"github.com/joescharf/ptime/internal/tracker"
)

// startDaemon serves the control API over an in-memory store and points
// the CLI at it.
func startDaemon(t *testing.T) *storetest.Memory {
	t.Helper()
	mem := storetest.New()
	tr := tracker.New(mem, tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ts := httptest.NewServer(api.NewServer(tr, mem, time.Local).Router())
	t.Cleanup(ts.Close)
	viper.Set("daemon.addr", ts.URL)
	return mem
}

func TestActivateSwitchDeactivate(t *testing.T) {
	_, out := testEnv(t)
	mem := startDaemon(t)
	ctx := t.Context()

	require.NoError(t, activateRun(ctx, "ptime", "main"))
	assert.Contains(t, out.String(), "tracking")
	assert.Contains(t, out.String(), "ptime@main")

	require.NoError(t, switchRun(ctx, "dev"))
	assert.Contains(t, out.String(), "ptime@dev")

	require.NoError(t, deactivateRun(ctx))
	assert.Contains(t, out.String(), "idle")

	ivs, err := mem.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, ivs, 2)
	open, err := mem.OpenIntervals(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestSwitch_RejectedWithoutProject(t *testing.T) {
	testEnv(t)
	startDaemon(t)

	err := switchRun(t.Context(), "dev")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestActivate_DaemonDown(t *testing.T) {
	testEnv(t)

	err := activateRun(t.Context(), "ptime", "main")
	assert.ErrorContains(t, err, "reach daemon")
}
