package subapp

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var _ Subject = (*Application)(nil)

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool // set of event types this observer is interested in
	registeredAt time.Time
}

// RegisterObserver adds an observer to receive lifecycle notifications.
// If eventTypes is empty, the observer receives all events.
func (app *Application) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	app.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer from receiving notifications.
// This method is idempotent and won't error if the observer wasn't registered.
func (app *Application) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	if _, exists := app.observers[observer.ObserverID()]; exists {
		delete(app.observers, observer.ObserverID())
		app.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}

	return nil
}

// NotifyObservers sends a CloudEvent to all interested observers. Delivery
// happens on one goroutine per observer unless ctx requests synchronous
// notification. Observer errors and panics are logged, never returned.
func (app *Application) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}

	if err := ValidateCloudEvent(event); err != nil {
		app.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	app.observerMutex.RLock()
	targets := make([]Observer, 0, len(app.observers))
	for _, registration := range app.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		targets = append(targets, registration.observer)
	}
	app.observerMutex.RUnlock()

	for _, observer := range targets {
		if IsSynchronousNotification(ctx) {
			app.deliver(ctx, observer, event)
			continue
		}
		go app.deliver(ctx, observer, event)
	}

	return nil
}

func (app *Application) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			app.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()

	if err := observer.OnEvent(ctx, event); err != nil {
		app.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns information about currently registered observers.
func (app *Application) GetObservers() []ObserverInfo {
	app.observerMutex.RLock()
	defer app.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(app.observers))
	for _, registration := range app.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}

		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}

	return info
}

// emitEvent is a helper method to emit CloudEvents with proper source information
func (app *Application) emitEvent(source, eventType string, data map[string]any) {
	ctx := context.Background()
	if app.syncNotify {
		ctx = WithSynchronousNotification(ctx)
	}

	event := NewCloudEvent(eventType, source, data, nil)
	if err := app.NotifyObservers(ctx, event); err != nil {
		app.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}
