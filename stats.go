package subapp

import "sync/atomic"

// Stats is a point-in-time snapshot of an application's counters.
type Stats struct {
	StylesInjected      int64
	ScriptsInjected     int64
	ScriptsLoaded       int64
	StylesRemoved       int64
	ScriptsRemoved      int64
	ControllersAdded    int64
	ControllersRemoved  int64
	SubAppsLaunched     int64
	SubAppsDestroyed    int64
	SubAppsFailed       int64
	ActiveSubApps       int64
	RegisteredListeners int64
}

// appStats holds the live counters. All methods are safe on a nil receiver
// so injectors built outside an application need no stats.
type appStats struct {
	stylesInjected     atomic.Int64
	scriptsInjected    atomic.Int64
	scriptsLoaded      atomic.Int64
	stylesRemoved      atomic.Int64
	scriptsRemoved     atomic.Int64
	controllersAdded   atomic.Int64
	controllersRemoved atomic.Int64
	subAppsLaunched    atomic.Int64
	subAppsDestroyed   atomic.Int64
	subAppsFailed      atomic.Int64
}

func (s *appStats) injected(kind ResourceKind) {
	if s == nil {
		return
	}
	if kind == ResourceExecutable {
		s.scriptsInjected.Add(1)
		return
	}
	s.stylesInjected.Add(1)
}

func (s *appStats) removed(kind ResourceKind) {
	if s == nil {
		return
	}
	if kind == ResourceExecutable {
		s.scriptsRemoved.Add(1)
		return
	}
	s.stylesRemoved.Add(1)
}

func (s *appStats) loaded() {
	if s != nil {
		s.scriptsLoaded.Add(1)
	}
}

func (s *appStats) controllerAdded() {
	if s != nil {
		s.controllersAdded.Add(1)
	}
}

func (s *appStats) controllerRemoved() {
	if s != nil {
		s.controllersRemoved.Add(1)
	}
}

func (s *appStats) launched() {
	if s != nil {
		s.subAppsLaunched.Add(1)
	}
}

func (s *appStats) destroyed() {
	if s != nil {
		s.subAppsDestroyed.Add(1)
	}
}

func (s *appStats) failed() {
	if s != nil {
		s.subAppsFailed.Add(1)
	}
}

func (s *appStats) snapshot() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		StylesInjected:     s.stylesInjected.Load(),
		ScriptsInjected:    s.scriptsInjected.Load(),
		ScriptsLoaded:      s.scriptsLoaded.Load(),
		StylesRemoved:      s.stylesRemoved.Load(),
		ScriptsRemoved:     s.scriptsRemoved.Load(),
		ControllersAdded:   s.controllersAdded.Load(),
		ControllersRemoved: s.controllersRemoved.Load(),
		SubAppsLaunched:    s.subAppsLaunched.Load(),
		SubAppsDestroyed:   s.subAppsDestroyed.Load(),
		SubAppsFailed:      s.subAppsFailed.Load(),
	}
}
