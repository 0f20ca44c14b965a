package commands

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

// waiter is implemented by hosts that can list executables they are still
// waiting for.
type waiter interface {
	Waiting() []string
}

// statusReporter logs the state of a sub-application, at warn level while
// it is still loading.
type statusReporter struct {
	app    *subapp.Application
	subApp *subapp.SubApplication
	host   waiter
	logger zerolog.Logger
}

func (r *statusReporter) report() {
	s := r.subApp
	stats := r.app.Stats()
	state := s.State()
	event := r.logger.Info()
	if state == subapp.StateLoading {
		event = r.logger.Warn()
		if r.host != nil {
			event = event.Strs("waiting", r.host.Waiting())
		}
	}
	event.
		Str("subapp", s.ID()).
		Str("state", state.String()).
		Int("controllers", len(s.Controllers())).
		Int64("scriptsLoaded", stats.ScriptsLoaded).
		Int64("busRegistrations", stats.RegisteredListeners).
		Msg("Sub-application status")
}

// startReporter schedules r on spec, a standard cron expression or a
// descriptor such as "@every 30s". An empty spec schedules nothing and
// returns a nil scheduler.
func startReporter(spec string, r *statusReporter) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, r.report); err != nil {
		return nil, fmt.Errorf("invalid --report schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
