package ports

import "github.com/bft-labs/shipctl/internal/domain"

// Notifier is the outbound channel to observers (dashboards, remote
// consoles). Calls are made from the controller thread and must not block
// for long.
type Notifier interface {
	// Reset tells observers a new session starts; previously registered
	// modules are gone.
	Reset()

	// RegisterModule announces a module with its initial state and properties.
	RegisterModule(name string, state domain.ModuleState, props []domain.PropertyView)

	// ModulesLoaded signals that every module has been registered.
	ModulesLoaded()

	// ModuleState reports the current state of a module.
	ModuleState(name string, state domain.ModuleState)

	// PropertyState reports the current value of a module property.
	PropertyState(module, property string, state bool)

	// CommandOutput delivers the textual result of a command to its requester.
	CommandOutput(module, requester, text string, isError bool)

	// CheckOutput delivers the textual result of a periodic check.
	CheckOutput(module, text string)
}
