package feeders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Text string `yaml:"text" toml:"text" env:"TEXT"`
	On   bool   `yaml:"on" toml:"on" env:"ON"`
}

type sample struct {
	Name     string        `yaml:"name" toml:"name" env:"NAME"`
	Count    int           `yaml:"count" toml:"count" env:"COUNT"`
	Names    []string      `yaml:"names" toml:"names" env:"NAMES"`
	Delay    time.Duration `yaml:"delay" toml:"delay" env:"DELAY"`
	Nested   nested        `yaml:"nested" toml:"nested"`
	Untagged string
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYamlFeeder(t *testing.T) {
	path := writeFile(t, "c.yaml", `
name: demo
names: [a, b]
delay: 250ms
nested:
  text: hi
`)
	s := sample{Count: 7, Untagged: "keep"}
	require.NoError(t, NewYamlFeeder(path).Feed(&s))

	assert.Equal(t, "demo", s.Name)
	assert.Equal(t, 7, s.Count, "absent keys leave fields untouched")
	assert.Equal(t, []string{"a", "b"}, s.Names)
	assert.Equal(t, 250*time.Millisecond, s.Delay)
	assert.Equal(t, "hi", s.Nested.Text)
	assert.Equal(t, "keep", s.Untagged)
}

func TestYamlFeeder_MissingFile(t *testing.T) {
	var s sample
	err := NewYamlFeeder(filepath.Join(t.TempDir(), "nope.yaml")).Feed(&s)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTomlFeeder(t *testing.T) {
	path := writeFile(t, "c.toml", `
name = "demo"
names = ["x"]
delay = "1s"

[nested]
on = true
`)
	s := sample{Count: 3}
	require.NoError(t, NewTomlFeeder(path).Feed(&s))

	assert.Equal(t, "demo", s.Name)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, []string{"x"}, s.Names)
	assert.Equal(t, time.Second, s.Delay)
	assert.True(t, s.Nested.On)
}

func TestTomlFeeder_Malformed(t *testing.T) {
	path := writeFile(t, "bad.toml", "name = ")
	var s sample
	assert.Error(t, NewTomlFeeder(path).Feed(&s))
}

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestEnvFeeder(t *testing.T) {
	f := EnvFeeder{Prefix: "app", lookup: fakeEnv(map[string]string{
		"APP_NAME":  "from-env",
		"APP_COUNT": "42",
		"APP_NAMES": "one, two,,three",
		"APP_DELAY": "5ms",
		"APP_TEXT":  "nested",
		"APP_ON":    "true",
	})}

	var s sample
	require.NoError(t, f.Feed(&s))

	assert.Equal(t, "from-env", s.Name)
	assert.Equal(t, 42, s.Count)
	assert.Equal(t, []string{"one", "two", "three"}, s.Names)
	assert.Equal(t, 5*time.Millisecond, s.Delay)
	assert.Equal(t, "nested", s.Nested.Text)
	assert.True(t, s.Nested.On)
}

func TestEnvFeeder_EmptyValuesIgnored(t *testing.T) {
	f := EnvFeeder{Prefix: "APP", lookup: fakeEnv(map[string]string{"APP_NAME": ""})}
	s := sample{Name: "keep"}
	require.NoError(t, f.Feed(&s))
	assert.Equal(t, "keep", s.Name)
}

func TestEnvFeeder_Errors(t *testing.T) {
	var s sample
	assert.ErrorIs(t, EnvFeeder{}.Feed(&s), ErrEnvEmptyPrefix)
	assert.ErrorIs(t, NewEnvFeeder("APP").Feed(s), ErrEnvInvalidStructure)
	assert.ErrorIs(t, NewEnvFeeder("APP").Feed(nil), ErrEnvInvalidStructure)

	bad := EnvFeeder{Prefix: "APP", lookup: fakeEnv(map[string]string{"APP_COUNT": "many"})}
	assert.Error(t, bad.Feed(&s))
}

func TestEnvFeeder_ProcessEnvironment(t *testing.T) {
	t.Setenv("SUBAPPTEST_NAME", "real")
	var s sample
	require.NoError(t, NewEnvFeeder("subapptest").Feed(&s))
	assert.Equal(t, "real", s.Name)
}
