package commands

import (
	"context"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

// pingEvent is the event every logController listens to, with its own id as
// the selector.
const pingEvent = "ping"

// logController stands in for the controller types a manifest names: it
// logs every event routed to it.
type logController struct {
	id     string
	logger subapp.Logger
}

func newLogController(cfg subapp.ControllerConfig) (subapp.Controller, error) {
	return &logController{id: cfg.ID, logger: cfg.Application.Logger()}, nil
}

func (c *logController) ID() string {
	return c.id
}

func (c *logController) Init(app *subapp.Application) error {
	return app.EventBus().Listen(c.id, pingEvent, c.id, func(_ context.Context, event subapp.CloudEvent) error {
		c.logger.Info("Controller received event", "controller", c.id, "event", event.Type(), "id", event.ID())
		return nil
	})
}

// registerControllers adds a logController type for every name the catalog
// does not know yet.
func registerControllers(app *subapp.Application, names []string) error {
	known := make(map[string]bool)
	for _, name := range app.ControllerTypes() {
		known[name] = true
	}
	for _, name := range names {
		if known[name] {
			continue
		}
		if err := app.RegisterControllerType(name, newLogController); err != nil {
			return err
		}
		known[name] = true
	}
	return nil
}
