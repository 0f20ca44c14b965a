package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test", "none", "now")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subapp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: demo
controllers: [main]
dependencies:
  css: [app.css]
  js: [a.js, b.js]
loadMask: false
loadingText: Wait
`), 0o600))

	out, err := runCommand(t, "validate", "--no-env", path)
	require.NoError(t, err)
	assert.Contains(t, out, "id: demo")
	assert.Contains(t, out, "enabled: false")
	assert.Contains(t, out, "text: Wait")
	assert.Contains(t, out, "removeJSFileDelay: 100ms")
}

func TestValidateCommand_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subapp.toml")
	require.NoError(t, os.WriteFile(path, []byte(`id = "demo"`), 0o600))
	t.Setenv("SUBAPP_LOADING_TEXT", "From env")

	out, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "text: From env")
}

func TestValidateCommand_Errors(t *testing.T) {
	_, err := runCommand(t, "validate")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "subapp.ini")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err = runCommand(t, "validate", path)
	assert.Error(t, err)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(zerolog.New(&buf))

	logger.Info("Sub-application active", "subapp", "demo", "controllers", 2)
	logger.Debug("debug line")

	assert.Contains(t, buf.String(), `"message":"Sub-application active"`)
	assert.Contains(t, buf.String(), `"subapp":"demo"`)
	assert.Contains(t, buf.String(), `"controllers":2`)
	assert.Contains(t, buf.String(), `"level":"debug"`)
}
