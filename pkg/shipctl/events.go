package shipctl

import "github.com/bft-labs/shipctl/internal/app"

// State is the lifecycle state of a Shipctl instance.
type State int

const (
	StateStopped State = iota
	StateInitializing
	StateRunning
	StateStopping
	StateFaulted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return toPhase(s).String()
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle events. Calls are made from the
// controller thread and must return quickly without calling back into the
// Shipctl instance.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnPhaseChange(previous, current app.Phase, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertPhase(previous),
		Current:  convertPhase(current),
		Reason:   reason,
	})
}

func convertPhase(p app.Phase) State {
	switch p {
	case app.PhaseInitializing:
		return StateInitializing
	case app.PhaseRunning:
		return StateRunning
	case app.PhaseStopping:
		return StateStopping
	case app.PhaseFaulted:
		return StateFaulted
	default:
		return StateStopped
	}
}

func toPhase(s State) app.Phase {
	switch s {
	case StateInitializing:
		return app.PhaseInitializing
	case StateRunning:
		return app.PhaseRunning
	case StateStopping:
		return app.PhaseStopping
	case StateFaulted:
		return app.PhaseFaulted
	default:
		return app.PhaseStopped
	}
}
