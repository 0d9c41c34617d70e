// Package domain contains the core entities of shipctl: modules, their
// properties, and the ordered actions that drive them between states.
//
// This package is the innermost layer. It has no dependencies on logging,
// transport, or the file system and never reads the wall clock: every
// operation that is gated on time takes the current instant as a parameter.
//
// # Entities
//
//   - [Module]: a named group of devices with its own lifecycle state machine
//   - [Property]: a boolean sub-state of a module with startup/shutdown delays
//   - [Action]: one step of a startup or shutdown sequence
//   - [Faults]: accumulated configuration faults, reported in bulk
//
// # State Machine
//
// Valid module transitions:
//   - Disabled -> ComingUp (ToggleState, SetState(true))
//   - ComingUp -> Enabled (CheckState, once every startup action is applied)
//   - Enabled -> GoingDown (ToggleState, SetState(false))
//   - GoingDown -> Disabled (CheckState, once every shutdown action is applied)
//   - any -> Error (a property change out of sequence)
//   - Error -> Disabled or Enabled (TryFixError, per the configured default)
package domain
