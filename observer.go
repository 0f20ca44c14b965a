// Package subapp loads "sub-applications" into a running host application:
// it injects their style and executable resources, waits for every
// executable to load, wires their controllers onto the host's shared event
// bus, runs their launch hooks, and tears all of it down again when the main
// view they launched is destroyed.
//
// Lifecycle notifications use the CloudEvents specification so observers can
// forward them to external systems unchanged.
package subapp

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// sub-application lifecycle events.
type Observer interface {
	// OnEvent is called when an event occurs that the observer is interested in.
	// Observers should handle events quickly to avoid blocking other observers.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject defines the interface for objects that can be observed.
type Subject interface {
	// RegisterObserver adds an observer to receive notifications.
	// If eventTypes is empty, the observer receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all registered observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about currently registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// EventType constants for the events emitted while sub-applications move
// through their lifecycle. They use reverse domain notation.
const (
	EventTypeStateChanged = "com.subapp.lifecycle.state_changed"
	EventTypeFailed       = "com.subapp.lifecycle.failed"
	EventTypeDegraded     = "com.subapp.lifecycle.degraded"

	EventTypeResourceInjected = "com.subapp.resource.injected"
	EventTypeResourceLoaded   = "com.subapp.resource.loaded"
	EventTypeResourceRemoved  = "com.subapp.resource.removed"

	EventTypeControllerAdded   = "com.subapp.controller.added"
	EventTypeControllerRemoved = "com.subapp.controller.removed"

	EventTypeSubApplicationRegistered   = "com.subapp.application.registered"
	EventTypeSubApplicationUnregistered = "com.subapp.application.unregistered"
)

// ObserverFunc is a functional observer that can be registered with the application.
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler ObserverFunc
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler ObserverFunc) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// internal key type to avoid collisions
type syncNotifyCtxKey struct{}

var syncKey = syncNotifyCtxKey{}

// WithSynchronousNotification marks the context to request synchronous observer delivery.
func WithSynchronousNotification(ctx context.Context) context.Context {
	return context.WithValue(ctx, syncKey, true)
}

// IsSynchronousNotification returns true if the context requests synchronous delivery.
func IsSynchronousNotification(ctx context.Context) bool {
	v, _ := ctx.Value(syncKey).(bool)
	return v
}
