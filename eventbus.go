package subapp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Handler reacts to an event routed to a controller.
type Handler func(ctx context.Context, event cloudevents.Event) error

// busEntry is one controller's registration under an event/selector pair.
type busEntry struct {
	controllerID string
	handlers     []Handler
}

// EventBus is the shared routing table: event name → selector → ordered
// set of controller registrations. A controller appears at most once per
// event/selector pair; registering again appends to its handler list.
//
// Events are routed by CloudEvent type (the event name) and subject (the
// selector).
type EventBus struct {
	mu     sync.RWMutex
	routes map[string]map[string][]*busEntry
	logger Logger
}

// NewEventBus creates an empty routing table.
func NewEventBus(logger Logger) *EventBus {
	if logger == nil {
		logger = nopLogger{}
	}
	return &EventBus{
		routes: make(map[string]map[string][]*busEntry),
		logger: logger,
	}
}

// Listen registers handler for controllerID under event/selector.
func (b *EventBus) Listen(controllerID, event, selector string, handler Handler) error {
	return b.Control(controllerID, map[string]map[string]Handler{
		selector: {event: handler},
	})
}

// Control registers a controller's handlers, keyed selector → event →
// handler. Either every registration is applied or none is.
func (b *EventBus) Control(controllerID string, selectors map[string]map[string]Handler) error {
	if controllerID == "" {
		return ErrControllerIDEmpty
	}
	for selector, events := range selectors {
		for event, handler := range events {
			if event == "" {
				return fmt.Errorf("%w: selector %q", ErrEventNameEmpty, selector)
			}
			if handler == nil {
				return fmt.Errorf("%w: %s/%s", ErrHandlerNil, event, selector)
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, selector := range sortedKeys(selectors) {
		events := selectors[selector]
		for _, event := range sortedKeys(events) {
			b.add(controllerID, event, selector, events[event])
		}
	}
	return nil
}

// add must be called with b.mu held.
func (b *EventBus) add(controllerID, event, selector string, handler Handler) {
	bySelector, ok := b.routes[event]
	if !ok {
		bySelector = make(map[string][]*busEntry)
		b.routes[event] = bySelector
	}
	for _, entry := range bySelector[selector] {
		if entry.controllerID == controllerID {
			entry.handlers = append(entry.handlers, handler)
			return
		}
	}
	bySelector[selector] = append(bySelector[selector], &busEntry{
		controllerID: controllerID,
		handlers:     []Handler{handler},
	})
	b.logger.Debug("Controller listening", "controller", controllerID, "event", event, "selector", selector)
}

// Uncontrol strips every registration belonging to the given controller
// identities, wherever they appear. Registrations of other controllers under
// the same event/selector pairs are left untouched; pairs and events left
// with no registrations are pruned. It returns the number of registrations
// removed.
func (b *EventBus) Uncontrol(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for event, bySelector := range b.routes {
		for selector, entries := range bySelector {
			kept := entries[:0:0]
			for _, entry := range entries {
				if _, drop := remove[entry.controllerID]; drop {
					removed++
					continue
				}
				kept = append(kept, entry)
			}
			if len(kept) == 0 {
				delete(bySelector, selector)
			} else {
				bySelector[selector] = kept
			}
		}
		if len(bySelector) == 0 {
			delete(b.routes, event)
		}
	}

	if removed > 0 {
		b.logger.Debug("Controllers unregistered from event bus", "controllers", ids, "registrations", removed)
	}
	return removed
}

// Dispatch delivers event to every handler registered under its type and
// subject, in registration order. Handlers run outside the bus lock so they
// may themselves change registrations. All handlers run even if some fail;
// the returned error joins their failures.
func (b *EventBus) Dispatch(ctx context.Context, event cloudevents.Event) (int, error) {
	b.mu.RLock()
	var handlers []Handler
	if bySelector, ok := b.routes[event.Type()]; ok {
		for _, entry := range bySelector[event.Subject()] {
			handlers = append(handlers, entry.handlers...)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return len(handlers), errors.Join(errs...)
}

// Listeners returns the controller identities registered under
// event/selector, in registration order.
func (b *EventBus) Listeners(event, selector string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.routes[event][selector]
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.controllerID)
	}
	return ids
}

// Has reports whether controllerID is registered under event/selector.
func (b *EventBus) Has(event, selector, controllerID string) bool {
	return slices.Contains(b.Listeners(event, selector), controllerID)
}

// Len returns the total number of controller registrations across every
// event/selector pair.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, bySelector := range b.routes {
		for _, entries := range bySelector {
			n += len(entries)
		}
	}
	return n
}

// Events returns the event names that currently have registrations, sorted.
func (b *EventBus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.routes)
}

// Selectors returns the selectors registered for event, sorted.
func (b *EventBus) Selectors(event string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.routes[event])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
