package subapp

import (
	"errors"
)

// Application errors
var (
	ErrApplicationNil = errors.New("application is nil")
	ErrHostNil        = errors.New("host is nil")
	ErrLoggerNil      = errors.New("logger is nil")

	// Configuration errors
	ErrConfigNil                 = errors.New("config is nil")
	ErrConfigNotPointer          = errors.New("config must be a pointer")
	ErrConfigNotStruct           = errors.New("config must be a struct")
	ErrUnsupportedTypeForDefault = errors.New("unsupported type for default value")
	ErrUnsupportedConfigFormat   = errors.New("unsupported config format")
	ErrConfigFeederError         = errors.New("config feeder error")

	// Controller errors
	ErrControllerNil               = errors.New("controller is nil")
	ErrControllerIDEmpty           = errors.New("controller id is empty")
	ErrControllerTypeNotFound      = errors.New("controller type not found")
	ErrControllerTypeExists        = errors.New("controller type already registered")
	ErrControllerFactoryNil        = errors.New("controller factory is nil")
	ErrControllerAlreadyRegistered = errors.New("controller already registered")
	ErrControllerNotRegistered     = errors.New("controller not registered")
	ErrControllerInit              = errors.New("controller init failed")

	// Event bus errors
	ErrHandlerNil     = errors.New("handler is nil")
	ErrEventNameEmpty = errors.New("event name is empty")

	// Resource errors
	ErrResourceInjection    = errors.New("resource injection failed")
	ErrResourceRemoval      = errors.New("resource removal failed")
	ErrUnknownResourceKind  = errors.New("unknown resource kind")
	ErrResourceSourceEmpty  = errors.New("resource source is empty")
	ErrArtifactNotRecognise = errors.New("artifact not recognised by host")

	// Lifecycle errors
	ErrSubApplicationDestroyed = errors.New("sub-application destroyed")
	ErrHookFailed              = errors.New("lifecycle hook failed")

	// Observer errors
	ErrObserverNil = errors.New("observer is nil")
)
