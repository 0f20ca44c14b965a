// Package fshost is a filesystem subapp.Host. Injecting a resource stages a
// copy of its source file into a "head" directory; removing it deletes the
// copy. Executables whose source does not exist yet are reported loaded
// once the file appears, detected both by fsnotify events on the source
// directory and by a ready-state poll. Later writes to a watched source
// refresh its staged copy until the artifact is removed.
package fshost

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

// DefaultPollInterval is how often a missing executable is checked for.
const DefaultPollInterval = 250 * time.Millisecond

// ErrHostClosed is returned when injecting into a closed host.
var ErrHostClosed = errors.New("fshost: host is closed")

// Artifact is a staged resource.
type Artifact struct {
	Kind   subapp.ResourceKind
	Source string
	Staged string

	path string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for watcher and staging problems.
func WithLogger(logger subapp.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithPollInterval sets the ready-state poll interval for missing
// executables.
func WithPollInterval(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

type pending struct {
	artifact *Artifact
	path     string
	signal   subapp.LoadSignal
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	arrived bool
}

func (p *pending) halt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Host stages resources from a source root into a head directory.
type Host struct {
	root         string
	head         string
	logger       subapp.Logger
	pollInterval time.Duration
	watcher      *fsnotify.Watcher

	mu        sync.Mutex
	seq       int
	artifacts map[*Artifact]struct{}
	waiting   map[string][]*pending
	watched   map[string]bool
	closed    bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a host reading relative sources from root and staging them
// into head, which is created if needed. Close releases the watcher.
func New(root, head string, opts ...Option) (*Host, error) {
	if err := os.MkdirAll(head, 0o755); err != nil {
		return nil, fmt.Errorf("fshost: create head directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fshost: failed to create watcher: %w", err)
	}

	h := &Host{
		root:         root,
		head:         head,
		logger:       nopLogger{},
		pollInterval: DefaultPollInterval,
		watcher:      watcher,
		artifacts:    make(map[*Artifact]struct{}),
		waiting:      make(map[string][]*pending),
		watched:      make(map[string]bool),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.wg.Add(1)
	go h.processEvents()
	return h, nil
}

// Head returns the staging directory.
func (h *Host) Head() string {
	return h.head
}

// InjectStyle stages source immediately. The source must exist.
func (h *Host) InjectStyle(source string) (subapp.Artifact, error) {
	a, err := h.newArtifact(subapp.ResourceStyle, source)
	if err != nil {
		return nil, err
	}
	if err := copyFile(a.path, a.Staged); err != nil {
		h.forgetArtifact(a)
		return nil, err
	}
	return a, nil
}

// InjectExecutable stages source and reports it loaded. A missing source is
// waited for; signal fires once it shows up.
func (h *Host) InjectExecutable(source string, signal subapp.LoadSignal) (subapp.Artifact, error) {
	a, err := h.newArtifact(subapp.ResourceExecutable, source)
	if err != nil {
		return nil, err
	}

	path := a.path
	if _, statErr := os.Stat(path); statErr == nil {
		if err := copyFile(path, a.Staged); err != nil {
			h.forgetArtifact(a)
			return nil, err
		}
		signal.Loaded()
		return a, nil
	}

	p := &pending{artifact: a, path: path, signal: signal, stop: make(chan struct{})}
	h.wait(p)
	signal.ReadyStateChanged(subapp.ReadyStateLoading)

	h.wg.Add(1)
	go h.poll(p)
	return a, nil
}

// Remove deletes the staged copy and stops waiting for the source.
func (h *Host) Remove(artifact subapp.Artifact) error {
	a, ok := artifact.(*Artifact)
	if !ok {
		return fmt.Errorf("%w: %T", subapp.ErrArtifactNotRecognise, artifact)
	}

	h.mu.Lock()
	if _, ok := h.artifacts[a]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", subapp.ErrArtifactNotRecognise, a.Source)
	}
	delete(h.artifacts, a)
	for path, ps := range h.waiting {
		for i, p := range ps {
			if p.artifact == a {
				p.halt()
				h.waiting[path] = append(ps[:i], ps[i+1:]...)
				break
			}
		}
		if len(h.waiting[path]) == 0 {
			delete(h.waiting, path)
		}
	}
	h.mu.Unlock()

	if err := os.Remove(a.Staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fshost: remove %s: %w", a.Staged, err)
	}
	return nil
}

// Staged returns the staged paths of every attached artifact.
func (h *Host) Staged() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.artifacts))
	for a := range h.artifacts {
		out = append(out, a.Staged)
	}
	return out
}

// Waiting returns the source paths executables are still waiting for,
// sorted.
func (h *Host) Waiting() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.waiting))
	for path := range h.waiting {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Close stops watching and polling. Staged files are left in place.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.done)
	h.mu.Unlock()

	err := h.watcher.Close()
	h.wg.Wait()
	return err
}

func (h *Host) resolve(source string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(h.root, source)
}

func (h *Host) newArtifact(kind subapp.ResourceKind, source string) (*Artifact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHostClosed
	}
	h.seq++
	a := &Artifact{
		Kind:   kind,
		Source: source,
		Staged: filepath.Join(h.head, fmt.Sprintf("%04d-%s", h.seq, filepath.Base(source))),
		path:   h.resolve(source),
	}
	h.artifacts[a] = struct{}{}
	return a, nil
}

func (h *Host) forgetArtifact(a *Artifact) {
	h.mu.Lock()
	delete(h.artifacts, a)
	h.mu.Unlock()
}

// wait registers p and watches its directory when the directory exists.
// Without a watch the poll alone notices the file.
func (h *Host) wait(p *pending) {
	dir := filepath.Dir(p.path)

	h.mu.Lock()
	h.waiting[p.path] = append(h.waiting[p.path], p)
	watch := !h.watched[dir]
	if watch {
		h.watched[dir] = true
	}
	h.mu.Unlock()

	if !watch {
		return
	}
	if err := h.watcher.Add(dir); err != nil {
		h.logger.Debug("Not watching source directory; relying on polling", "dir", dir, "error", err)
		h.mu.Lock()
		delete(h.watched, dir)
		h.mu.Unlock()
	}
}

func (h *Host) processEvents() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			h.mu.Lock()
			ps := append([]*pending(nil), h.waiting[name]...)
			h.mu.Unlock()
			for _, p := range ps {
				h.arrive(p, p.signal.Loaded)
			}
			// A Create may be seen before any content is written.
			if event.Op&fsnotify.Write != 0 {
				h.restage(name)
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("Watcher error", "error", err)
		}
	}
}

func (h *Host) poll(p *pending) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-p.stop:
			return
		case <-ticker.C:
			if _, err := os.Stat(p.path); err != nil {
				p.signal.ReadyStateChanged(subapp.ReadyStateLoading)
				continue
			}
			if h.arrive(p, func() { p.signal.ReadyStateChanged(subapp.ReadyStateComplete) }) {
				return
			}
		}
	}
}

// arrive stages p's source and, on success, stops waiting for it and calls
// notify. Both the watcher and the poll may get here for the same file.
func (h *Host) arrive(p *pending, notify func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.arrived {
		return true
	}
	select {
	case <-p.stop:
		// Removed while waiting.
		return true
	default:
	}

	if err := copyFile(p.path, p.artifact.Staged); err != nil {
		h.logger.Warn("Failed to stage executable", "source", p.artifact.Source, "error", err)
		return false
	}
	p.arrived = true

	h.mu.Lock()
	ps := h.waiting[p.path]
	for i, q := range ps {
		if q == p {
			h.waiting[p.path] = append(ps[:i], ps[i+1:]...)
			break
		}
	}
	if len(h.waiting[p.path]) == 0 {
		delete(h.waiting, p.path)
	}
	h.mu.Unlock()

	p.halt()
	notify()
	return true
}

// restage copies path again over the staged copy of every attached
// executable that has already arrived from it.
func (h *Host) restage(path string) {
	h.mu.Lock()
	var targets []*Artifact
	for a := range h.artifacts {
		if a.Kind == subapp.ResourceExecutable && a.path == path && !h.isWaiting(a) {
			targets = append(targets, a)
		}
	}
	h.mu.Unlock()

	for _, a := range targets {
		if err := copyFile(path, a.Staged); err != nil {
			h.logger.Warn("Failed to restage executable", "source", a.Source, "error", err)
			continue
		}
		h.mu.Lock()
		_, attached := h.artifacts[a]
		h.mu.Unlock()
		if !attached {
			// Removed while copying.
			_ = os.Remove(a.Staged)
		}
	}
}

// isWaiting reports whether a is still waiting for its source. h.mu must be
// held.
func (h *Host) isWaiting(a *Artifact) bool {
	for _, p := range h.waiting[a.path] {
		if p.artifact == a {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fshost: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("fshost: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("fshost: copy %s: %w", src, err)
	}
	return out.Close()
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
