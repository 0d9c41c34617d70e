package app

import (
	"context"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// Controller is the goroutine-safe surface of a running host, used by the
// HTTP and MQTT adapters and by the periodic check job.
type Controller interface {
	Commands

	// Check queues a state check of every module.
	Check(ctx context.Context) (bool, error)

	// Reset starts a new session from the modules source.
	Reset(ctx context.Context, reason string) error

	// Status returns the current status of the controller.
	Status(ctx context.Context) (ports.Status, error)

	// Module returns the status of one module.
	Module(ctx context.Context, name string) (ports.ModuleStatus, error)
}

// Serialized executes every call on the host thread through Host.Do.
type Serialized struct {
	host *Host
}

var _ Controller = (*Serialized)(nil)

// NewSerialized wraps a host that is driven by Host.Run.
func NewSerialized(host *Host) *Serialized {
	return &Serialized{host: host}
}

func (s *Serialized) reply(ctx context.Context, fn func() (Reply, error)) (Reply, error) {
	var (
		reply Reply
		err   error
	)
	if doErr := s.host.Do(ctx, func() { reply, err = fn() }); doErr != nil {
		return Reply{}, doErr
	}
	return reply, err
}

// GetState implements Commands.
func (s *Serialized) GetState(ctx context.Context, module, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.GetState(ctx, module, requester) })
}

// ToggleState implements Commands.
func (s *Serialized) ToggleState(ctx context.Context, module, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.ToggleState(ctx, module, requester) })
}

// SetState implements Commands.
func (s *Serialized) SetState(ctx context.Context, module, requester string, enabled bool) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.SetState(ctx, module, requester, enabled) })
}

// TryFixError implements Commands.
func (s *Serialized) TryFixError(ctx context.Context, module, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.TryFixError(ctx, module, requester) })
}

// Standby implements Commands.
func (s *Serialized) Standby(ctx context.Context, module, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.Standby(ctx, module, requester) })
}

// GetProperty implements Commands.
func (s *Serialized) GetProperty(ctx context.Context, module, property, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.GetProperty(ctx, module, property, requester) })
}

// ToggleProperty implements Commands.
func (s *Serialized) ToggleProperty(ctx context.Context, module, property, requester string) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.ToggleProperty(ctx, module, property, requester) })
}

// SetProperty implements Commands.
func (s *Serialized) SetProperty(ctx context.Context, module, property, requester string, state bool) (Reply, error) {
	return s.reply(ctx, func() (Reply, error) { return s.host.SetProperty(ctx, module, property, requester, state) })
}

// Check implements Controller.
func (s *Serialized) Check(ctx context.Context) (bool, error) {
	var queued bool
	err := s.host.Do(ctx, func() { queued = s.host.RequestCheck() })
	return queued, err
}

// Reset implements Controller.
func (s *Serialized) Reset(ctx context.Context, reason string) error {
	var err error
	if doErr := s.host.Do(ctx, func() { err = s.host.Reset(reason) }); doErr != nil {
		return doErr
	}
	return err
}

// Status implements Controller.
func (s *Serialized) Status(ctx context.Context) (ports.Status, error) {
	var st ports.Status
	err := s.host.Do(ctx, func() { st = s.host.Snapshot() })
	return st, err
}

// Module implements Controller.
func (s *Serialized) Module(ctx context.Context, name string) (ports.ModuleStatus, error) {
	var (
		st    ports.ModuleStatus
		found bool
	)
	if err := s.host.Do(ctx, func() {
		if m, ok := s.host.reg.Lookup(name); ok {
			st, found = moduleStatus(m), true
		}
	}); err != nil {
		return ports.ModuleStatus{}, err
	}
	if !found {
		return ports.ModuleStatus{}, domain.ErrUnknownModule
	}
	return st, nil
}
