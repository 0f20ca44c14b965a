package subapp

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Injector attaches resources to a Host and owns their removal.
//
// For executables the Injector turns whatever completion signals the host
// produces (a single Loaded call, repeated ready-state polls, or both) into
// exactly one completion callback per handle.
type Injector struct {
	host   Host
	logger Logger
	stats  *appStats
	seq    atomic.Uint64
}

// NewInjector creates an injector for host.
func NewInjector(host Host, logger Logger) *Injector {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Injector{host: host, logger: logger}
}

// Inject attaches res to the host. For executables, onComplete runs once on
// the first genuine completion signal, possibly before Inject returns and
// possibly on a host goroutine. onComplete is ignored for styles.
func (i *Injector) Inject(res Resource, onComplete func(*ResourceHandle)) (*ResourceHandle, error) {
	if i.host == nil {
		return nil, ErrHostNil
	}
	if res.Source == "" {
		return nil, ErrResourceSourceEmpty
	}

	h := &ResourceHandle{
		ID:         generateID(),
		Kind:       res.Kind,
		Source:     res.Source,
		Order:      i.seq.Add(1),
		InjectedAt: time.Now(),
	}

	var (
		artifact Artifact
		err      error
	)
	switch res.Kind {
	case ResourceStyle:
		artifact, err = i.host.InjectStyle(res.Source)
	case ResourceExecutable:
		artifact, err = i.host.InjectExecutable(res.Source, &handleSignal{
			handle:     h,
			injector:   i,
			onComplete: onComplete,
		})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownResourceKind, int(res.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", ErrResourceInjection, res.Kind, res.Source, err)
	}

	h.mu.Lock()
	h.artifact = artifact
	h.attached = true
	removeNow := h.removed
	h.mu.Unlock()

	i.stats.injected(res.Kind)
	i.logger.Debug("Injected resource", "kind", res.Kind, "source", res.Source, "handle", h.ID)

	// Removal was requested while the host was still injecting. The resource
	// was injected, so a failed removal is not an injection error.
	if removeNow {
		if err := i.detach(h, artifact); err != nil {
			i.logger.Warn("Failed to remove resource after injection", "source", res.Source, "handle", h.ID, "error", err)
		}
	}

	return h, nil
}

// Remove detaches the handle's resource from the host. Calling Remove more
// than once is a no-op.
func (i *Injector) Remove(h *ResourceHandle) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	if h.removed {
		h.mu.Unlock()
		return nil
	}
	h.removed = true
	attached, artifact := h.attached, h.artifact
	h.mu.Unlock()

	if !attached {
		i.logger.Debug("Deferring removal until injection returns", "source", h.Source, "handle", h.ID)
		return nil
	}

	return i.detach(h, artifact)
}

func (i *Injector) detach(h *ResourceHandle, artifact Artifact) error {
	if err := i.host.Remove(artifact); err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrResourceRemoval, h.Kind, h.Source, err)
	}
	i.stats.removed(h.Kind)
	i.logger.Debug("Removed resource", "kind", h.Kind, "source", h.Source, "handle", h.ID)
	return nil
}

// handleSignal is the LoadSignal handed to the host for one executable.
type handleSignal struct {
	handle     *ResourceHandle
	injector   *Injector
	onComplete func(*ResourceHandle)
	once       sync.Once
}

func (s *handleSignal) Loaded() {
	s.fire("loaded")
}

func (s *handleSignal) ReadyStateChanged(state ReadyState) {
	if !state.Complete() {
		return
	}
	s.fire("readystate:" + state.String())
}

func (s *handleSignal) fire(via string) {
	s.once.Do(func() {
		s.handle.mu.Lock()
		s.handle.completed = true
		s.handle.mu.Unlock()

		s.injector.stats.loaded()
		s.injector.logger.Debug("Resource loaded", "source", s.handle.Source, "handle", s.handle.ID, "via", via)

		if s.onComplete != nil {
			s.onComplete(s.handle)
		}
	})
}
