package domain

// ModuleState is the lifecycle state of a module.
// The numeric values are part of the notification wire format.
type ModuleState int

const (
	StateError     ModuleState = -1
	StateDisabled  ModuleState = 0
	StateEnabled   ModuleState = 1
	StateGoingDown ModuleState = 2
	StateComingUp  ModuleState = 3
)

// String returns a human-readable representation of the state.
func (s ModuleState) String() string {
	switch s {
	case StateError:
		return "Error"
	case StateDisabled:
		return "Disabled"
	case StateEnabled:
		return "Enabled"
	case StateGoingDown:
		return "Shutting Down"
	case StateComingUp:
		return "Starting Up"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the five defined states.
func (s ModuleState) Valid() bool {
	return s >= StateError && s <= StateComingUp
}

// Stable reports whether the state needs no further input to persist.
func (s ModuleState) Stable() bool {
	return s == StateDisabled || s == StateEnabled
}

// InFlight reports whether a startup or shutdown sequence is running.
func (s ModuleState) InFlight() bool {
	return s == StateComingUp || s == StateGoingDown
}

// defaultState maps a configured default boolean to a stable state.
func defaultState(enabled bool) ModuleState {
	if enabled {
		return StateEnabled
	}
	return StateDisabled
}
