package subapp

import "sync"

// LoadIndicator is shown while a sub-application loads its dependencies and
// hidden once its controllers are in place, just before launch.
type LoadIndicator interface {
	Show()
	Hide()
}

// IndicatorFactory builds the load indicator for a load mask configuration.
type IndicatorFactory func(cfg LoadMaskConfig) LoadIndicator

// MainView is the view a sub-application's launch hook hands back. Its
// destruction is what tears the sub-application down.
type MainView interface {
	// OnDestroy subscribes fn to the view's destroy notification.
	OnDestroy(fn func())
}

// View is a minimal MainView. Destroy notifies subscribers once; later
// calls do nothing. Subscribing after destruction runs fn immediately.
type View struct {
	Name string

	mu        sync.Mutex
	listeners []func()
	destroyed bool
}

// NewView creates a live view.
func NewView(name string) *View {
	return &View{Name: name}
}

// OnDestroy implements MainView.
func (v *View) OnDestroy(fn func()) {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		fn()
		return
	}
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Destroy fires the destroy notification.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	listeners := v.listeners
	v.listeners = nil
	v.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Destroyed reports whether Destroy has been called.
func (v *View) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}
