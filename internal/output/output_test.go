package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestMessages(t *testing.T) {
	u, out, errOut := newTestUI()

	u.Info("tracking %s", "ptime@main")
	u.Success("exported %d projects", 2)
	u.Warning("daemon not running")
	u.Error("could not record time: %s", "locked")

	assert.Contains(t, out.String(), "tracking ptime@main")
	assert.Contains(t, out.String(), "exported 2 projects")
	assert.Contains(t, errOut.String(), "daemon not running")
	assert.Contains(t, errOut.String(), "could not record time: locked")
	assert.NotContains(t, out.String(), "locked")
}

func TestVerboseLog(t *testing.T) {
	u, out, _ := newTestUI()
	u.VerboseLog("db at %s", "/tmp/x")
	assert.Empty(t, out.String())

	u.Verbose = true
	u.VerboseLog("db at %s", "/tmp/x")
	assert.Contains(t, out.String(), "db at /tmp/x")
}

func TestTrackingState(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	assert.Equal(t, "tracking", TrackingState(true, false))
	assert.Equal(t, "pending", TrackingState(false, true))
	assert.Equal(t, "idle", TrackingState(false, false))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table("Project", "Duration")
	require.NotNil(t, table)

	require.NoError(t, table.Append([]string{"ptime", "1h 30m"}))
	require.NoError(t, table.Append([]string{"website", "45m"}))
	require.NoError(t, table.Render())

	result := out.String()
	assert.True(t, strings.Contains(result, "ptime"))
	assert.True(t, strings.Contains(result, "1h 30m"))
	assert.True(t, strings.Contains(result, "website"))
}
