package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

type pendingWaiter struct{ host *subapp.MemoryHost }

func (w pendingWaiter) Waiting() []string { return w.host.Pending() }

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestStatusReporter(t *testing.T) {
	host := subapp.NewMemoryHost()
	app, err := subapp.NewApplication(subapp.WithHost(host))
	require.NoError(t, err)

	cfg := subapp.DefaultConfig()
	cfg.ID = "demo"
	cfg.RemoveScriptDelay = 0
	cfg.Dependencies.Executable = []string{"slow.js"}
	s, err := subapp.New(app, cfg, subapp.WithLaunch(func() (subapp.MainView, error) {
		return subapp.NewView("main"), nil
	}))
	require.NoError(t, err)

	var buf bytes.Buffer
	r := &statusReporter{app: app, subApp: s, host: pendingWaiter{host}, logger: zerolog.New(&buf)}

	r.report()
	entry := lastLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "loading", entry["state"])
	assert.Equal(t, []any{"slow.js"}, entry["waiting"])

	host.Complete("slow.js")
	r.report()
	entry = lastLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "active", entry["state"])
	assert.EqualValues(t, 1, entry["scriptsLoaded"])
	assert.NotContains(t, entry, "waiting")
}

func TestStartReporter(t *testing.T) {
	c, err := startReporter("", &statusReporter{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = startReporter("not a schedule", &statusReporter{})
	assert.Error(t, err)

	c, err = startReporter("@every 1h", &statusReporter{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	c.Stop()
}
