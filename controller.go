package subapp

// Controller is a unit of behaviour a sub-application instantiates once its
// executables have loaded. Controllers usually register handlers on the
// application's EventBus from Init, under their own ID, so that removing the
// controller can strip exactly those registrations.
type Controller interface {
	// ID returns the controller's identity. It must be unique within the
	// registry the controller is added to and is the key used on the event
	// bus.
	ID() string

	// Init is the controller's init hook. It runs after the controller has
	// been added to its registry, so it may query the registry.
	Init(app *Application) error
}

// ControllerConfig is handed to a ControllerFactory.
type ControllerConfig struct {
	// Name is the controller type name the factory was registered under.
	Name string

	// ID is the identity the controller must report. It defaults to Name.
	ID string

	// Application is the host application the controller is built for.
	Application *Application
}

// ControllerFactory constructs a controller of one named type.
type ControllerFactory func(cfg ControllerConfig) (Controller, error)

// ControllerDescriptor names a controller type to construct and, optionally,
// the identity to give it.
//
// The event bus is shared by every sub-application of an Application and
// keyed by controller identity. Two live sub-applications holding the same
// identity share its registrations, and tearing down either one strips them
// for both. Give controllers unique identities when the same type is loaded
// by more than one sub-application at a time.
type ControllerDescriptor struct {
	Name string
	ID   string
}
