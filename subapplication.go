package subapp

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// SubApplication is one dynamically loaded unit of functionality. It is
// created by New and drives itself through its lifecycle:
//
//	Init → Loading → ScriptsReady → Launching → Active → Destroying → Destroyed
//
// Loading lasts until every executable resource has reported completion,
// which may be never. Teardown is triggered only by the destroy notification
// of the main view returned from the launch hook.
type SubApplication struct {
	app       *Application
	id        string
	cfg       Config
	logger    Logger
	host      Host
	injector  *Injector
	registry  *ControllerRegistry
	indicator LoadIndicator
	afterFunc func(time.Duration, func())

	beforeLaunch func() error
	launch       func() (MainView, error)

	mu      sync.Mutex
	state   LifecycleState
	styles  []*ResourceHandle
	scripts []*ResourceHandle
	view    MainView
	err     error

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a sub-application in app and starts loading it.
//
// Every style and executable in cfg.Dependencies is injected before New
// returns. When there are no executables, or the host reports them loaded
// synchronously, the whole launch sequence also completes before New
// returns; otherwise it runs on whichever goroutine delivers the last
// completion.
//
// Errors found before anything is injected return a nil SubApplication. An
// injection failure rolls back what was already injected and returns the
// destroyed SubApplication with the error. A failing controller or hook
// during a synchronous launch returns the SubApplication, stopped where the
// failure happened, along with the error.
func New(app *Application, cfg Config, opts ...Option) (*SubApplication, error) {
	if app == nil {
		return nil, ErrApplicationNil
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Dependencies = cfg.Dependencies.clone()
	cfg.Controllers = slices.Clone(cfg.Controllers)
	if cfg.ID == "" {
		cfg.ID = generateID()
	}

	s := &SubApplication{
		app:       app,
		id:        cfg.ID,
		cfg:       cfg,
		logger:    app.logger,
		host:      app.host,
		registry:  NewControllerRegistry(app),
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		ready:     make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.host == nil {
		return nil, ErrHostNil
	}
	s.injector = app.newInjector(s.host)

	if s.indicator == nil && cfg.LoadMask.Enabled && app.indicatorFactory != nil {
		s.indicator = app.indicatorFactory(cfg.LoadMask)
	}

	s.logger.Info("Loading sub-application", "subapp", s.id,
		"styles", len(cfg.Dependencies.Style), "executables", len(cfg.Dependencies.Executable),
		"controllers", cfg.Controllers)

	s.transition(StateInit, StateLoading)
	if s.indicator != nil {
		s.indicator.Show()
	}

	for _, src := range cfg.Dependencies.Style {
		h, err := s.injector.Inject(Resource{Kind: ResourceStyle, Source: src}, nil)
		if err != nil {
			return s, s.abort(err)
		}
		s.mu.Lock()
		s.styles = append(s.styles, h)
		s.mu.Unlock()
		s.emitResource(EventTypeResourceInjected, h)
	}

	join := NewJoin(len(cfg.Dependencies.Executable), s.onScriptsReady)

	for _, src := range cfg.Dependencies.Executable {
		h, err := s.injector.Inject(Resource{Kind: ResourceExecutable, Source: src}, func(h *ResourceHandle) {
			s.trackScript(h)
			s.emitResource(EventTypeResourceLoaded, h)
			join.Complete(h.ID)
		})
		if err != nil {
			return s, s.abort(err)
		}
		s.trackScript(h)
		s.emitResource(EventTypeResourceInjected, h)
	}

	select {
	case <-s.ready:
		return s, s.Err()
	default:
		return s, nil
	}
}

// ID returns the sub-application identifier.
func (s *SubApplication) ID() string {
	return s.id
}

// Config returns the configuration the sub-application was created with.
func (s *SubApplication) Config() Config {
	cfg := s.cfg
	cfg.Dependencies = cfg.Dependencies.clone()
	cfg.Controllers = slices.Clone(cfg.Controllers)
	return cfg
}

// State returns the current lifecycle state.
func (s *SubApplication) State() LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Controllers returns the registered controllers in insertion order.
func (s *SubApplication) Controllers() []*ControllerEntry {
	return s.registry.Entries()
}

// Controller returns the controller registered under id.
func (s *SubApplication) Controller(id string) (*ControllerEntry, bool) {
	return s.registry.Get(id)
}

// AddController registers and initialises ctrl in this sub-application.
func (s *SubApplication) AddController(ctrl Controller) (*ControllerEntry, error) {
	return s.addController(func() (*ControllerEntry, error) {
		return s.registry.Add(ctrl, false)
	})
}

// AddControllerByName constructs the catalog controller type name with the
// given identity (the type name when id is empty) and adds it.
func (s *SubApplication) AddControllerByName(name, id string) (*ControllerEntry, error) {
	return s.addController(func() (*ControllerEntry, error) {
		return s.registry.AddDescriptor(ControllerDescriptor{Name: name, ID: id}, false)
	})
}

// addController runs add unless teardown has started. If teardown starts
// while add runs, the new controller is removed again, along with anything
// its Init put on the event bus.
func (s *SubApplication) addController(add func() (*ControllerEntry, error)) (*ControllerEntry, error) {
	if s.inert() {
		return nil, ErrSubApplicationDestroyed
	}
	entry, err := add()
	if entry == nil {
		return nil, err
	}
	if s.inert() {
		if rmErr := s.registry.Remove(entry, true); rmErr != nil {
			// Teardown already took the entry; Init may have listened since.
			s.app.EventBus().Uncontrol(entry.ID)
		}
		return nil, ErrSubApplicationDestroyed
	}
	s.emitController(EventTypeControllerAdded, entry.ID)
	s.warnIfShared(entry.ID)
	return entry, err
}

// warnIfShared logs when another live sub-application holds a controller
// with the same id. Both share the id's event bus registrations, so
// tearing down either strips them for both.
func (s *SubApplication) warnIfShared(id string) {
	if holders := s.app.controllerHolders(id, s); len(holders) > 0 {
		s.logger.Warn("Controller id is shared with another sub-application", "subapp", s.id, "controller", id, "with", holders)
	}
}

// RemoveController removes the controller registered under id and strips
// its event bus registrations.
func (s *SubApplication) RemoveController(id string) error {
	entry, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrControllerNotRegistered, id)
	}
	if err := s.registry.Remove(entry, true); err != nil {
		return err
	}
	s.emitController(EventTypeControllerRemoved, id)
	return nil
}

// View returns the main view returned by the launch hook, if any.
func (s *SubApplication) View() MainView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Err returns the error that stopped the lifecycle, if any.
func (s *SubApplication) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Ready is closed once the sub-application is Active or its launch failed.
func (s *SubApplication) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the sub-application is Active or its launch failed, and
// returns the launch error. A stalled load blocks until ctx is done.
func (s *SubApplication) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StyleHandles returns the retained style resources.
func (s *SubApplication) StyleHandles() []*ResourceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.styles)
}

// ScriptHandles returns the executable resources not yet handed off for
// removal.
func (s *SubApplication) ScriptHandles() []*ResourceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scripts)
}

func (s *SubApplication) inert() bool {
	state := s.State()
	return state == StateDestroying || state == StateDestroyed
}

// transition moves from one state to the next. It reports false, changing
// nothing, when the current state is not from.
func (s *SubApplication) transition(from, to LifecycleState) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Debug("Sub-application state changed", "subapp", s.id, "from", from, "to", to)
	s.app.emitEvent(s.source(), EventTypeStateChanged, map[string]any{
		"subapp": s.id,
		"from":   from.String(),
		"to":     to.String(),
	})
	return true
}

func (s *SubApplication) trackScript(h *ResourceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading || slices.Contains(s.scripts, h) {
		return
	}
	s.scripts = append(s.scripts, h)
}

// onScriptsReady runs once, when the last executable has loaded.
func (s *SubApplication) onScriptsReady() {
	if !s.transition(StateLoading, StateScriptsReady) {
		return
	}

	s.removeScripts()

	for _, name := range s.cfg.Controllers {
		entry, err := s.registry.AddDescriptor(ControllerDescriptor{Name: name}, false)
		if entry != nil {
			s.emitController(EventTypeControllerAdded, entry.ID)
			s.warnIfShared(entry.ID)
		}
		if err != nil {
			s.fail(err)
			return
		}
	}

	s.transition(StateScriptsReady, StateLaunching)
	s.app.addSubApplication(s)
	s.app.emitEvent(s.source(), EventTypeSubApplicationRegistered, map[string]any{"subapp": s.id})

	if s.beforeLaunch != nil {
		if err := s.beforeLaunch(); err != nil {
			s.fail(fmt.Errorf("%w: beforeLaunch: %w", ErrHookFailed, err))
			return
		}
	}
	if s.indicator != nil {
		s.indicator.Hide()
	}

	var view MainView
	if s.launch != nil {
		v, err := s.launch()
		if err != nil {
			s.fail(fmt.Errorf("%w: launch: %w", ErrHookFailed, err))
			return
		}
		view = v
	}

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	s.transition(StateLaunching, StateActive)
	s.app.stats.launched()
	s.markReady()

	if view == nil {
		s.logger.Warn("Launch returned no main view; sub-application will not tear down on its own", "subapp", s.id)
		s.app.emitEvent(s.source(), EventTypeDegraded, map[string]any{"subapp": s.id})
		return
	}

	s.logger.Info("Sub-application active", "subapp", s.id, "controllers", s.registry.IDs())
	view.OnDestroy(s.teardown)
}

// removeScripts hands every executable off for removal, after
// RemoveScriptDelay when one is configured.
func (s *SubApplication) removeScripts() {
	s.mu.Lock()
	scripts := s.scripts
	s.scripts = nil
	s.mu.Unlock()

	if len(scripts) == 0 {
		return
	}

	remove := func() {
		for _, h := range scripts {
			s.removeHandle(h)
		}
	}
	if s.cfg.RemoveScriptDelay <= 0 {
		remove()
		return
	}
	s.afterFunc(s.cfg.RemoveScriptDelay, remove)
}

func (s *SubApplication) removeHandle(h *ResourceHandle) {
	if err := s.injector.Remove(h); err != nil {
		s.logger.Warn("Failed to remove resource", "subapp", s.id, "source", h.Source, "error", err)
		return
	}
	s.emitResource(EventTypeResourceRemoved, h)
}

// teardown runs on the main view's destroy notification. Only the first
// call from Active does anything.
func (s *SubApplication) teardown() {
	if !s.transition(StateActive, StateDestroying) {
		return
	}

	for _, entry := range s.registry.Entries() {
		if err := s.registry.Remove(entry, true); err != nil {
			s.logger.Warn("Failed to remove controller", "subapp", s.id, "controller", entry.ID, "error", err)
			continue
		}
		s.emitController(EventTypeControllerRemoved, entry.ID)
	}

	s.mu.Lock()
	styles := s.styles
	s.styles = nil
	s.view = nil
	s.mu.Unlock()

	for _, h := range styles {
		s.removeHandle(h)
	}

	if s.app.removeSubApplication(s) {
		s.app.emitEvent(s.source(), EventTypeSubApplicationUnregistered, map[string]any{"subapp": s.id})
	}

	s.transition(StateDestroying, StateDestroyed)
	s.app.stats.destroyed()
	s.logger.Info("Sub-application destroyed", "subapp", s.id)
}

// abort undoes a partially injected Loading state after an injection
// failure and leaves the sub-application Destroyed.
func (s *SubApplication) abort(cause error) error {
	s.mu.Lock()
	handles := append(slices.Clone(s.styles), s.scripts...)
	s.styles, s.scripts = nil, nil
	s.mu.Unlock()

	for _, h := range handles {
		s.removeHandle(h)
	}
	if s.indicator != nil {
		s.indicator.Hide()
	}

	s.transition(StateLoading, StateDestroying)
	s.transition(StateDestroying, StateDestroyed)
	s.fail(cause)
	return cause
}

// fail records err, releases Wait callers and reports the failure. The
// lifecycle stays where it stopped.
func (s *SubApplication) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	state := s.state
	s.mu.Unlock()

	s.app.stats.failed()
	s.logger.Error("Sub-application failed", "subapp", s.id, "state", state, "error", err)
	s.app.emitEvent(s.source(), EventTypeFailed, map[string]any{
		"subapp": s.id,
		"state":  state.String(),
		"error":  err.Error(),
	})
	s.markReady()
}

func (s *SubApplication) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *SubApplication) source() string {
	return "subapp/" + s.id
}

func (s *SubApplication) emitResource(eventType string, h *ResourceHandle) {
	s.app.emitEvent(s.source(), eventType, map[string]any{
		"subapp": s.id,
		"handle": h.ID,
		"kind":   h.Kind.String(),
		"source": h.Source,
	})
}

func (s *SubApplication) emitController(eventType, id string) {
	s.app.emitEvent(s.source(), eventType, map[string]any{
		"subapp":     s.id,
		"controller": id,
	})
}
