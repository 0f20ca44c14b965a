package subapp

import (
	"sync"
	"time"
)

// ResourceKind distinguishes presentation resources from loadable code units.
type ResourceKind int

const (
	// ResourceStyle is a presentation unit. Styles are fire-and-forget: they
	// are never joined and stay injected until the sub-application is torn down.
	ResourceStyle ResourceKind = iota

	// ResourceExecutable is a loadable code unit. Executables are transient:
	// they are needed only until they have loaded, then they are removed.
	ResourceExecutable
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceStyle:
		return "style"
	case ResourceExecutable:
		return "executable"
	default:
		return "unknown"
	}
}

// Resource identifies one external resource to inject.
type Resource struct {
	Kind   ResourceKind
	Source string
}

// ReadyState mirrors the polled "ready state" some hosts report while a
// resource is loading. Only ReadyStateLoaded and ReadyStateComplete count as
// completion.
type ReadyState int

const (
	ReadyStateUninitialized ReadyState = iota
	ReadyStateLoading
	ReadyStateInteractive
	ReadyStateLoaded
	ReadyStateComplete
)

func (s ReadyState) String() string {
	if s < ReadyStateUninitialized || s > ReadyStateComplete {
		return "unknown"
	}
	return [...]string{
		"uninitialized",
		"loading",
		"interactive",
		"loaded",
		"complete",
	}[s]
}

// Complete reports whether the state signals a finished load.
func (s ReadyState) Complete() bool {
	return s == ReadyStateLoaded || s == ReadyStateComplete
}

// Artifact is the host's own representation of an injected resource. It is
// opaque to everything but the Host that produced it.
type Artifact any

// LoadSignal receives completion notifications for an executable resource.
// Hosts may call either method any number of times and from any goroutine.
type LoadSignal interface {
	// Loaded reports that the resource finished loading.
	Loaded()

	// ReadyStateChanged reports a polled ready state transition.
	ReadyStateChanged(state ReadyState)
}

// Host is the hosting environment resources are injected into.
//
// Implementations must be safe for concurrent use. A Host may report
// completion of an executable before InjectExecutable returns.
type Host interface {
	// InjectStyle attaches a style resource to the host.
	InjectStyle(source string) (Artifact, error)

	// InjectExecutable attaches an executable resource and reports its load
	// progress through signal.
	InjectExecutable(source string, signal LoadSignal) (Artifact, error)

	// Remove detaches a previously injected artifact.
	Remove(artifact Artifact) error
}

// ResourceHandle represents one injected resource. It is owned by the
// sub-application that created it.
type ResourceHandle struct {
	ID         string
	Kind       ResourceKind
	Source     string
	Order      uint64
	InjectedAt time.Time

	mu        sync.Mutex
	artifact  Artifact
	attached  bool
	completed bool
	removed   bool
}

// Completed reports whether an executable handle has fired its completion.
func (h *ResourceHandle) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Removed reports whether removal has been requested for the handle.
func (h *ResourceHandle) Removed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed
}

// Artifact returns the host artifact, or nil while injection is in flight.
func (h *ResourceHandle) Artifact() Artifact {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.artifact
}
