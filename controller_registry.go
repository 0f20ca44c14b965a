package subapp

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ControllerEntry is one controller held by a ControllerRegistry.
type ControllerEntry struct {
	ID         string
	Controller Controller

	initialized atomic.Bool
}

// Initialized reports whether the controller's init hook has completed
// successfully.
func (e *ControllerEntry) Initialized() bool {
	return e.initialized.Load()
}

// ControllerRegistry is the named set of controllers owned by one
// sub-application. Membership changes are visible to the next query; there
// is no deferred removal.
type ControllerRegistry struct {
	app *Application

	mu      sync.RWMutex
	entries []*ControllerEntry
	index   map[string]*ControllerEntry
}

// NewControllerRegistry creates an empty registry whose controllers are
// initialised against app and unregistered from app's event bus.
func NewControllerRegistry(app *Application) *ControllerRegistry {
	return &ControllerRegistry{
		app:   app,
		index: make(map[string]*ControllerEntry),
	}
}

// AddDescriptor constructs the controller type named by desc through the
// application's controller catalog and adds it. The identity defaults to the
// type name.
func (r *ControllerRegistry) AddDescriptor(desc ControllerDescriptor, skipInit bool) (*ControllerEntry, error) {
	if r.app == nil {
		return nil, ErrApplicationNil
	}
	ctrl, err := r.app.newController(desc)
	if err != nil {
		return nil, err
	}
	return r.Add(ctrl, skipInit)
}

// Add registers ctrl and, unless skipInit is set, runs its init hook. The
// entry is visible in the registry before Init runs. If Init fails the entry
// stays registered, uninitialised, and the error is returned.
func (r *ControllerRegistry) Add(ctrl Controller, skipInit bool) (*ControllerEntry, error) {
	if r.app == nil {
		return nil, ErrApplicationNil
	}
	if ctrl == nil {
		return nil, ErrControllerNil
	}
	id := ctrl.ID()
	if id == "" {
		return nil, ErrControllerIDEmpty
	}

	entry := &ControllerEntry{ID: id, Controller: ctrl}

	r.mu.Lock()
	if _, exists := r.index[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrControllerAlreadyRegistered, id)
	}
	r.entries = append(r.entries, entry)
	r.index[id] = entry
	r.mu.Unlock()

	r.app.stats.controllerAdded()
	r.app.logger.Debug("Added controller", "controller", id, "type", fmt.Sprintf("%T", ctrl))

	if skipInit {
		return entry, nil
	}

	if err := ctrl.Init(r.app); err != nil {
		return entry, fmt.Errorf("%w: %s: %w", ErrControllerInit, id, err)
	}
	entry.initialized.Store(true)
	return entry, nil
}

// Remove takes entry out of the registry and, when unregisterFromBus is set,
// strips its registrations from the application's event bus. Removing an
// entry that is not in the registry returns ErrControllerNotRegistered and
// changes nothing.
func (r *ControllerRegistry) Remove(entry *ControllerEntry, unregisterFromBus bool) error {
	if entry == nil {
		return ErrControllerNil
	}

	r.mu.Lock()
	current, ok := r.index[entry.ID]
	if !ok || current != entry {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrControllerNotRegistered, entry.ID)
	}
	delete(r.index, entry.ID)
	for i, e := range r.entries {
		if e == entry {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if unregisterFromBus {
		r.app.EventBus().Uncontrol(entry.ID)
	}

	r.app.stats.controllerRemoved()
	r.app.logger.Debug("Removed controller", "controller", entry.ID, "unregistered", unregisterFromBus)
	return nil
}

// Get returns the entry registered under id.
func (r *ControllerRegistry) Get(id string) (*ControllerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.index[id]
	return entry, ok
}

// Entries returns a snapshot of the registered entries in insertion order.
func (r *ControllerRegistry) Entries() []*ControllerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ControllerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// IDs returns the registered identities in insertion order.
func (r *ControllerRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Len returns the number of registered controllers.
func (r *ControllerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
