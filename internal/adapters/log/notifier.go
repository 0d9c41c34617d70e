// Package log provides notifiers that write module notifications to a
// structured logger, and a fan-out to several notifiers.
package log

import (
	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// Notifier implements ports.Notifier by logging every notification.
// Command output goes to info or warn depending on its error flag.
type Notifier struct {
	logger ports.Logger
}

// NewNotifier creates a logging notifier.
func NewNotifier(logger ports.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Reset implements ports.Notifier.
func (n *Notifier) Reset() {
	n.logger.Info("session reset")
}

// RegisterModule implements ports.Notifier.
func (n *Notifier) RegisterModule(name string, state domain.ModuleState, props []domain.PropertyView) {
	n.logger.Info("module registered",
		ports.String("module", name),
		ports.Stringer("state", state),
		ports.Int("properties", len(props)),
	)
}

// ModulesLoaded implements ports.Notifier.
func (n *Notifier) ModulesLoaded() {
	n.logger.Info("modules loaded")
}

// ModuleState implements ports.Notifier.
func (n *Notifier) ModuleState(name string, state domain.ModuleState) {
	n.logger.Info("module state",
		ports.String("module", name),
		ports.Stringer("state", state),
	)
}

// PropertyState implements ports.Notifier.
func (n *Notifier) PropertyState(module, property string, state bool) {
	n.logger.Debug("property state",
		ports.String("module", module),
		ports.String("property", property),
		ports.Bool("state", state),
	)
}

// CommandOutput implements ports.Notifier.
func (n *Notifier) CommandOutput(module, requester, text string, isError bool) {
	fields := []ports.Field{
		ports.String("module", module),
		ports.String("requester", requester),
		ports.String("output", text),
	}
	if isError {
		n.logger.Warn("command output", fields...)
		return
	}
	n.logger.Info("command output", fields...)
}

// CheckOutput implements ports.Notifier.
func (n *Notifier) CheckOutput(module, text string) {
	n.logger.Info("check output",
		ports.String("module", module),
		ports.String("output", text),
	)
}

// Multi fans every notification out to several notifiers in order.
type Multi []ports.Notifier

// Reset implements ports.Notifier.
func (m Multi) Reset() {
	for _, n := range m {
		n.Reset()
	}
}

// RegisterModule implements ports.Notifier.
func (m Multi) RegisterModule(name string, state domain.ModuleState, props []domain.PropertyView) {
	for _, n := range m {
		n.RegisterModule(name, state, props)
	}
}

// ModulesLoaded implements ports.Notifier.
func (m Multi) ModulesLoaded() {
	for _, n := range m {
		n.ModulesLoaded()
	}
}

// ModuleState implements ports.Notifier.
func (m Multi) ModuleState(name string, state domain.ModuleState) {
	for _, n := range m {
		n.ModuleState(name, state)
	}
}

// PropertyState implements ports.Notifier.
func (m Multi) PropertyState(module, property string, state bool) {
	for _, n := range m {
		n.PropertyState(module, property, state)
	}
}

// CommandOutput implements ports.Notifier.
func (m Multi) CommandOutput(module, requester, text string, isError bool) {
	for _, n := range m {
		n.CommandOutput(module, requester, text, isError)
	}
}

// CheckOutput implements ports.Notifier.
func (m Multi) CheckOutput(module, text string) {
	for _, n := range m {
		n.CheckOutput(module, text)
	}
}
