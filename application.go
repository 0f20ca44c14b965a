package subapp

import (
	"context"
	"fmt"
	"sync"
)

// ApplicationOption configures an Application.
type ApplicationOption func(*Application) error

// Application is the host application sub-applications are launched into.
// It owns the state every sub-application shares: the event bus, the
// catalog of controller types, the host environment resources are injected
// into, and the set of currently active sub-applications.
type Application struct {
	logger           Logger
	host             Host
	bus              *EventBus
	indicatorFactory IndicatorFactory
	syncNotify       bool
	stats            *appStats

	catalogMu sync.RWMutex
	catalog   map[string]ControllerFactory

	subAppsMu sync.RWMutex
	subApps   []*SubApplication

	observers     map[string]*observerRegistration
	observerMutex sync.RWMutex
}

// NewApplication creates a host application with the provided options.
func NewApplication(opts ...ApplicationOption) (*Application, error) {
	app := &Application{
		logger:    nopLogger{},
		stats:     &appStats{},
		catalog:   make(map[string]ControllerFactory),
		observers: make(map[string]*observerRegistration),
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.bus == nil {
		app.bus = NewEventBus(app.logger)
	}
	return app, nil
}

// WithLogger sets the logger for the application
func WithLogger(logger Logger) ApplicationOption {
	return func(app *Application) error {
		if logger == nil {
			return ErrLoggerNil
		}
		app.logger = logger
		return nil
	}
}

// WithHost sets the environment resources are injected into.
func WithHost(host Host) ApplicationOption {
	return func(app *Application) error {
		if host == nil {
			return ErrHostNil
		}
		app.host = host
		return nil
	}
}

// WithEventBus shares an existing event bus instead of creating one.
func WithEventBus(bus *EventBus) ApplicationOption {
	return func(app *Application) error {
		app.bus = bus
		return nil
	}
}

// WithIndicatorFactory sets how load indicators are created for
// sub-applications that enable their load mask.
func WithIndicatorFactory(factory IndicatorFactory) ApplicationOption {
	return func(app *Application) error {
		app.indicatorFactory = factory
		return nil
	}
}

// WithControllerType registers a controller type in the catalog.
func WithControllerType(name string, factory ControllerFactory) ApplicationOption {
	return func(app *Application) error {
		return app.RegisterControllerType(name, factory)
	}
}

// WithObservers registers functional observers for all events.
func WithObservers(observers ...ObserverFunc) ApplicationOption {
	return func(app *Application) error {
		for i, fn := range observers {
			observer := NewFunctionalObserver(fmt.Sprintf("observer-%d", i), fn)
			if err := app.RegisterObserver(observer); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithSynchronousObservers delivers lifecycle events to observers on the
// emitting goroutine instead of spawning one per observer.
func WithSynchronousObservers() ApplicationOption {
	return func(app *Application) error {
		app.syncNotify = true
		return nil
	}
}

// Logger returns the application logger.
func (app *Application) Logger() Logger {
	return app.logger
}

// Host returns the environment resources are injected into.
func (app *Application) Host() Host {
	return app.host
}

// EventBus returns the shared event routing table.
func (app *Application) EventBus() *EventBus {
	return app.bus
}

// Dispatch routes event through the shared event bus.
func (app *Application) Dispatch(ctx context.Context, event CloudEvent) (int, error) {
	return app.bus.Dispatch(ctx, event)
}

// RegisterControllerType adds a named controller type to the catalog
// sub-applications construct their controllers from.
func (app *Application) RegisterControllerType(name string, factory ControllerFactory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrControllerFactoryNil, name)
	}

	app.catalogMu.Lock()
	defer app.catalogMu.Unlock()

	if _, exists := app.catalog[name]; exists {
		return fmt.Errorf("%w: %s", ErrControllerTypeExists, name)
	}
	app.catalog[name] = factory
	app.logger.Debug("Registered controller type", "name", name)
	return nil
}

// ControllerTypes returns the registered controller type names, sorted.
func (app *Application) ControllerTypes() []string {
	app.catalogMu.RLock()
	defer app.catalogMu.RUnlock()
	return sortedKeys(app.catalog)
}

func (app *Application) newController(desc ControllerDescriptor) (Controller, error) {
	app.catalogMu.RLock()
	factory, ok := app.catalog[desc.Name]
	app.catalogMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrControllerTypeNotFound, desc.Name)
	}

	id := desc.ID
	if id == "" {
		id = desc.Name
	}
	ctrl, err := factory(ControllerConfig{Name: desc.Name, ID: id, Application: app})
	if err != nil {
		return nil, fmt.Errorf("failed to construct controller %s: %w", desc.Name, err)
	}
	if ctrl == nil {
		return nil, fmt.Errorf("%w: factory %s returned nil", ErrControllerNil, desc.Name)
	}
	return ctrl, nil
}

// SubApplications returns the active sub-applications in registration order.
func (app *Application) SubApplications() []*SubApplication {
	app.subAppsMu.RLock()
	defer app.subAppsMu.RUnlock()
	out := make([]*SubApplication, len(app.subApps))
	copy(out, app.subApps)
	return out
}

// SubApplication returns the active sub-application with the given id.
func (app *Application) SubApplication(id string) (*SubApplication, bool) {
	app.subAppsMu.RLock()
	defer app.subAppsMu.RUnlock()
	for _, s := range app.subApps {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

func (app *Application) addSubApplication(s *SubApplication) {
	app.subAppsMu.Lock()
	defer app.subAppsMu.Unlock()
	for _, existing := range app.subApps {
		if existing == s {
			return
		}
	}
	app.subApps = append(app.subApps, s)
}

// removeSubApplication reports whether s was registered.
func (app *Application) removeSubApplication(s *SubApplication) bool {
	app.subAppsMu.Lock()
	defer app.subAppsMu.Unlock()
	for i, existing := range app.subApps {
		if existing == s {
			app.subApps = append(app.subApps[:i], app.subApps[i+1:]...)
			return true
		}
	}
	return false
}

// controllerHolders returns the ids of the registered sub-applications,
// other than except, that hold a controller with the given id.
func (app *Application) controllerHolders(id string, except *SubApplication) []string {
	var holders []string
	for _, s := range app.SubApplications() {
		if s == except {
			continue
		}
		if _, ok := s.registry.Get(id); ok {
			holders = append(holders, s.ID())
		}
	}
	return holders
}

// Stats returns a snapshot of the application's counters.
func (app *Application) Stats() Stats {
	s := app.stats.snapshot()

	app.subAppsMu.RLock()
	s.ActiveSubApps = int64(len(app.subApps))
	app.subAppsMu.RUnlock()

	s.RegisteredListeners = int64(app.bus.Len())
	return s
}

func (app *Application) newInjector(host Host) *Injector {
	injector := NewInjector(host, app.logger)
	injector.stats = app.stats
	return injector
}
