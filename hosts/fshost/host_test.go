package fshost

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

type recordingSignal struct {
	mu     sync.Mutex
	loaded int
	states []subapp.ReadyState
}

func (s *recordingSignal) Loaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded++
}

func (s *recordingSignal) ReadyStateChanged(state subapp.ReadyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *recordingSignal) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded > 0 {
		return true
	}
	for _, st := range s.states {
		if st.Complete() {
			return true
		}
	}
	return false
}

func newHost(t *testing.T, opts ...Option) (*Host, string) {
	t.Helper()
	root := t.TempDir()
	h, err := New(root, filepath.Join(t.TempDir(), "head"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, root
}

// place writes content next to path and renames it into place so watchers
// never see a partial file.
func place(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	tmp := filepath.Join(t.TempDir(), "tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestInjectStyle_StagesAndRemoves(t *testing.T) {
	h, root := newHost(t)
	place(t, filepath.Join(root, "app.css"), "body{}")

	artifact, err := h.InjectStyle("app.css")
	require.NoError(t, err)
	a := artifact.(*Artifact)

	data, err := os.ReadFile(a.Staged)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
	assert.Equal(t, []string{a.Staged}, h.Staged())

	require.NoError(t, h.Remove(a))
	_, err = os.Stat(a.Staged)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, h.Staged())

	assert.ErrorIs(t, h.Remove(a), subapp.ErrArtifactNotRecognise)
}

func TestInjectStyle_MissingSource(t *testing.T) {
	h, _ := newHost(t)
	_, err := h.InjectStyle("missing.css")
	require.Error(t, err)
	assert.Empty(t, h.Staged())
}

func TestInjectExecutable_ExistingSourceLoadsImmediately(t *testing.T) {
	h, root := newHost(t)
	place(t, filepath.Join(root, "a.js"), "1")

	sig := &recordingSignal{}
	_, err := h.InjectExecutable("a.js", sig)
	require.NoError(t, err)
	assert.Equal(t, 1, sig.loaded)
}

func TestInjectExecutable_WaitsForWatchedFile(t *testing.T) {
	h, root := newHost(t, WithPollInterval(time.Hour))

	sig := &recordingSignal{}
	artifact, err := h.InjectExecutable("late.js", sig)
	require.NoError(t, err)
	assert.False(t, sig.done())
	assert.Equal(t, []string{filepath.Join(root, "late.js")}, h.Waiting())

	place(t, filepath.Join(root, "late.js"), "late")

	require.Eventually(t, sig.done, 5*time.Second, 10*time.Millisecond)
	data, err := os.ReadFile(artifact.(*Artifact).Staged)
	require.NoError(t, err)
	assert.Equal(t, "late", string(data))
}

func TestInjectExecutable_RestagesOnWrite(t *testing.T) {
	h, root := newHost(t, WithPollInterval(time.Hour))
	path := filepath.Join(root, "grow.js")

	sig := &recordingSignal{}
	artifact, err := h.InjectExecutable("grow.js", sig)
	require.NoError(t, err)
	staged := artifact.(*Artifact).Staged

	f, err := os.Create(path)
	require.NoError(t, err)
	require.Eventually(t, sig.done, 5*time.Second, 10*time.Millisecond)
	_, err = f.WriteString("complete")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(staged)
		return err == nil && string(data) == "complete"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Remove(artifact))
	require.NoError(t, os.WriteFile(path, []byte("again"), 0o600))
	assert.Never(t, func() bool {
		_, err := os.Stat(staged)
		return err == nil
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestInjectExecutable_PollFindsFileInNewDirectory(t *testing.T) {
	h, root := newHost(t, WithPollInterval(10*time.Millisecond))

	sig := &recordingSignal{}
	_, err := h.InjectExecutable(filepath.Join("later", "b.js"), sig)
	require.NoError(t, err)

	place(t, filepath.Join(root, "later", "b.js"), "b")
	require.Eventually(t, sig.done, 5*time.Second, 10*time.Millisecond)
}

func TestRemove_StopsWaiting(t *testing.T) {
	h, root := newHost(t, WithPollInterval(10*time.Millisecond))

	sig := &recordingSignal{}
	artifact, err := h.InjectExecutable("never.js", sig)
	require.NoError(t, err)
	require.NoError(t, h.Remove(artifact))
	assert.Empty(t, h.Waiting())

	place(t, filepath.Join(root, "never.js"), "x")
	time.Sleep(100 * time.Millisecond)

	assert.False(t, sig.done())
	_, err = os.Stat(artifact.(*Artifact).Staged)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithSubApplication(t *testing.T) {
	h, root := newHost(t, WithPollInterval(10*time.Millisecond))
	place(t, filepath.Join(root, "app.css"), "css")

	app, err := subapp.NewApplication(subapp.WithHost(h))
	require.NoError(t, err)

	cfg := subapp.DefaultConfig()
	cfg.RemoveScriptDelay = 0
	cfg.Dependencies.Style = []string{"app.css"}
	cfg.Dependencies.Executable = []string{"main.js"}

	view := subapp.NewView("main")
	s, err := subapp.New(app, cfg, subapp.WithLaunch(func() (subapp.MainView, error) { return view, nil }))
	require.NoError(t, err)
	assert.Equal(t, subapp.StateLoading, s.State())

	place(t, filepath.Join(root, "main.js"), "js")
	require.Eventually(t, func() bool { return s.State() == subapp.StateActive }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, h.Staged(), 1, "the executable is removed once loaded")

	view.Destroy()
	assert.Equal(t, subapp.StateDestroyed, s.State())
	assert.Empty(t, h.Staged())
}

func TestClose(t *testing.T) {
	h, _ := newHost(t)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err := h.InjectStyle("x.css")
	assert.ErrorIs(t, err, ErrHostClosed)
}
