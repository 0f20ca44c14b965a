package subapp

import (
	"fmt"
	"slices"
	"sync"
)

// MemoryArtifact is the artifact MemoryHost hands out.
type MemoryArtifact struct {
	Seq    int
	Kind   ResourceKind
	Source string
}

// MemoryHost is an in-process Host. It records what is attached and lets
// the caller decide when executables finish loading. With AutoComplete set,
// every executable reports Loaded from inside InjectExecutable.
type MemoryHost struct {
	AutoComplete bool

	// FailSources makes injection of the listed sources fail.
	FailSources map[string]error

	mu       sync.Mutex
	seq      int
	attached map[*MemoryArtifact]struct{}
	pending  map[string][]LoadSignal
	injected []string
	removed  []string
}

// NewMemoryHost creates an empty host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{}
}

// InjectStyle implements Host.
func (h *MemoryHost) InjectStyle(source string) (Artifact, error) {
	return h.attach(ResourceStyle, source)
}

// InjectExecutable implements Host.
func (h *MemoryHost) InjectExecutable(source string, signal LoadSignal) (Artifact, error) {
	artifact, err := h.attach(ResourceExecutable, source)
	if err != nil {
		return nil, err
	}

	if h.AutoComplete {
		signal.Loaded()
		return artifact, nil
	}

	h.mu.Lock()
	if h.pending == nil {
		h.pending = make(map[string][]LoadSignal)
	}
	h.pending[source] = append(h.pending[source], signal)
	h.mu.Unlock()
	return artifact, nil
}

func (h *MemoryHost) attach(kind ResourceKind, source string) (*MemoryArtifact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err, ok := h.FailSources[source]; ok {
		return nil, err
	}
	if h.attached == nil {
		h.attached = make(map[*MemoryArtifact]struct{})
	}
	h.seq++
	artifact := &MemoryArtifact{Seq: h.seq, Kind: kind, Source: source}
	h.attached[artifact] = struct{}{}
	h.injected = append(h.injected, source)
	return artifact, nil
}

// Remove implements Host.
func (h *MemoryHost) Remove(artifact Artifact) error {
	a, ok := artifact.(*MemoryArtifact)
	if !ok {
		return fmt.Errorf("%w: %T", ErrArtifactNotRecognise, artifact)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.attached[a]; !ok {
		return fmt.Errorf("%w: %s is not attached", ErrArtifactNotRecognise, a.Source)
	}
	delete(h.attached, a)
	h.removed = append(h.removed, a.Source)
	return nil
}

// Complete reports every pending executable injected from source as loaded
// and returns how many were signalled.
func (h *MemoryHost) Complete(source string) int {
	h.mu.Lock()
	signals := h.pending[source]
	delete(h.pending, source)
	h.mu.Unlock()

	for _, signal := range signals {
		signal.Loaded()
	}
	return len(signals)
}

// SetReadyState reports a ready-state transition to every pending
// executable injected from source. Signals stay pending, so the same state
// can be reported more than once.
func (h *MemoryHost) SetReadyState(source string, state ReadyState) int {
	h.mu.Lock()
	signals := append([]LoadSignal(nil), h.pending[source]...)
	h.mu.Unlock()

	for _, signal := range signals {
		signal.ReadyStateChanged(state)
	}
	return len(signals)
}

// Pending returns the sources with executables that have not been completed
// through Complete.
func (h *MemoryHost) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedKeys(h.pending)
}

// Attached returns the sources currently attached, in injection order.
func (h *MemoryHost) Attached() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	artifacts := make([]*MemoryArtifact, 0, len(h.attached))
	for a := range h.attached {
		artifacts = append(artifacts, a)
	}
	slices.SortFunc(artifacts, func(a, b *MemoryArtifact) int { return a.Seq - b.Seq })

	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Source
	}
	return out
}

// Injected returns every source ever injected, in order.
func (h *MemoryHost) Injected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.injected...)
}

// Removed returns every source removed, in order.
func (h *MemoryHost) Removed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.removed...)
}
