package subapp

import "time"

// Option configures a SubApplication.
type Option func(*SubApplication) error

// WithBeforeLaunch sets the hook run after the controllers are in place and
// before the load indicator is hidden.
func WithBeforeLaunch(fn func() error) Option {
	return func(s *SubApplication) error {
		s.beforeLaunch = fn
		return nil
	}
}

// WithLaunch sets the hook that builds the main view. Returning a nil view
// leaves the sub-application active with nothing to trigger its teardown.
func WithLaunch(fn func() (MainView, error)) Option {
	return func(s *SubApplication) error {
		s.launch = fn
		return nil
	}
}

// WithIndicator uses indicator instead of asking the application's
// indicator factory for one. It is shown even when the load mask is
// disabled in the config.
func WithIndicator(indicator LoadIndicator) Option {
	return func(s *SubApplication) error {
		s.indicator = indicator
		return nil
	}
}

// WithSubAppHost injects this sub-application's resources into host instead
// of the application's host.
func WithSubAppHost(host Host) Option {
	return func(s *SubApplication) error {
		if host == nil {
			return ErrHostNil
		}
		s.host = host
		return nil
	}
}

// WithAfterFunc replaces time.AfterFunc for the delayed removal of
// executables.
func WithAfterFunc(fn func(d time.Duration, f func())) Option {
	return func(s *SubApplication) error {
		if fn != nil {
			s.afterFunc = fn
		}
		return nil
	}
}
