// Package feeders provides configuration feeders that populate a struct from
// YAML files, TOML files and prefixed environment variables.
package feeders

import "errors"

var (
	// ErrEnvInvalidStructure indicates that the target is not a pointer to a struct.
	ErrEnvInvalidStructure = errors.New("env: invalid structure")
	// ErrEnvEmptyPrefix indicates an env feeder without a prefix.
	ErrEnvEmptyPrefix = errors.New("env: prefix cannot be empty")
	// ErrFieldCannotBeSet indicates an unexported or otherwise unsettable field.
	ErrFieldCannotBeSet = errors.New("field cannot be set")
)
