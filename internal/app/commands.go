package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// Command operation names, used in logs and metrics.
const (
	OpGetState       = "get_state"
	OpToggleState    = "toggle_state"
	OpSetState       = "set_state"
	OpTryFixError    = "fix"
	OpStandby        = "standby"
	OpGetProperty    = "get_property"
	OpToggleProperty = "toggle_property"
	OpSetProperty    = "set_property"
)

// Reply is the outcome of a command.
type Reply struct {
	Module   string             `json:"module"`
	Property string             `json:"property,omitempty"`
	Code     int                `json:"code"`
	Text     string             `json:"text"`
	IsError  bool               `json:"is_error"`
	State    domain.ModuleState `json:"state"`
	// Value is the property value for property commands.
	Value *bool `json:"value,omitempty"`
}

// Commands is the command surface exposed to operators. requester is an
// opaque id the output is delivered to.
//
// A non-nil error means the command never reached a module: unknown module
// (domain.ErrUnknownModule), controller not running (domain.ErrNotRunning)
// or a canceled context. Rejections by the module are reported in the Reply.
type Commands interface {
	GetState(ctx context.Context, module, requester string) (Reply, error)
	ToggleState(ctx context.Context, module, requester string) (Reply, error)
	SetState(ctx context.Context, module, requester string, enabled bool) (Reply, error)
	TryFixError(ctx context.Context, module, requester string) (Reply, error)
	Standby(ctx context.Context, module, requester string) (Reply, error)
	GetProperty(ctx context.Context, module, property, requester string) (Reply, error)
	ToggleProperty(ctx context.Context, module, property, requester string) (Reply, error)
	SetProperty(ctx context.Context, module, property, requester string, state bool) (Reply, error)
}

var _ Commands = (*Host)(nil)

// GetState implements Commands.
func (h *Host) GetState(_ context.Context, module, requester string) (Reply, error) {
	return h.moduleCommand(OpGetState, module, requester, func(m *domain.Module) (domain.Result, string) {
		return domain.ResultOK, "state: " + m.State().String()
	})
}

// ToggleState implements Commands.
func (h *Host) ToggleState(_ context.Context, module, requester string) (Reply, error) {
	return h.moduleCommand(OpToggleState, module, requester, func(m *domain.Module) (domain.Result, string) {
		r := m.ToggleState(h.now())
		return r, stateText(r, m, h.now())
	})
}

// SetState implements Commands.
func (h *Host) SetState(_ context.Context, module, requester string, enabled bool) (Reply, error) {
	return h.moduleCommand(OpSetState, module, requester, func(m *domain.Module) (domain.Result, string) {
		r := m.SetState(h.now(), enabled)
		return r, stateText(r, m, h.now())
	})
}

// TryFixError implements Commands.
func (h *Host) TryFixError(_ context.Context, module, requester string) (Reply, error) {
	return h.moduleCommand(OpTryFixError, module, requester, func(m *domain.Module) (domain.Result, string) {
		r := m.TryFixError()
		return r, fixText(r, m)
	})
}

// Standby pauses an enabled module or resumes a disabled one.
func (h *Host) Standby(_ context.Context, module, requester string) (Reply, error) {
	return h.moduleCommand(OpStandby, module, requester, func(m *domain.Module) (domain.Result, string) {
		r := m.SetState(h.now(), m.State() != domain.StateEnabled)
		return r, stateText(r, m, h.now())
	})
}

// GetProperty implements Commands.
func (h *Host) GetProperty(_ context.Context, module, property, requester string) (Reply, error) {
	return h.propertyCommand(OpGetProperty, module, property, requester, func(m *domain.Module) domain.Result {
		_, r := m.Property(property)
		return r
	})
}

// ToggleProperty implements Commands.
func (h *Host) ToggleProperty(_ context.Context, module, property, requester string) (Reply, error) {
	return h.propertyCommand(OpToggleProperty, module, property, requester, func(m *domain.Module) domain.Result {
		return m.ToggleProperty(h.now(), property)
	})
}

// SetProperty implements Commands.
func (h *Host) SetProperty(_ context.Context, module, property, requester string, state bool) (Reply, error) {
	return h.propertyCommand(OpSetProperty, module, property, requester, func(m *domain.Module) domain.Result {
		return m.SetProperty(h.now(), property, state)
	})
}

// lookup resolves a module of a running session.
func (h *Host) lookup(module string) (*domain.Module, error) {
	switch h.lifecycle.Phase() {
	case PhaseRunning:
	case PhaseFaulted:
		return nil, fmt.Errorf("%w: %w", domain.ErrNotRunning, domain.ErrInitFailed)
	default:
		return nil, domain.ErrNotRunning
	}
	m, ok := h.reg.Lookup(module)
	if !ok {
		return nil, domain.ErrUnknownModule
	}
	return m, nil
}

// reject answers a command that never reached a module.
func (h *Host) reject(op, module, property, requester string, err error) (Reply, error) {
	reply := Reply{
		Module:   module,
		Property: property,
		Code:     int(domain.ResultNotFound),
		Text:     rejectText(err),
		IsError:  true,
	}
	h.recorder.CommandResult(op, domain.ResultNotFound)
	h.notifier.CommandOutput(module, requester, reply.Text, true)
	h.logger.Warn("command rejected",
		ports.String("op", op),
		ports.String("module", module),
		ports.String("requester", requester),
		ports.Err(err),
	)
	return reply, err
}

func (h *Host) moduleCommand(op, module, requester string, run func(*domain.Module) (domain.Result, string)) (Reply, error) {
	m, err := h.lookup(module)
	if err != nil {
		return h.reject(op, module, "", requester, err)
	}

	before := m.State()
	r, text := run(m)
	reply := Reply{
		Module:  module,
		Code:    int(r),
		Text:    text,
		IsError: r.Rejected() || (op == OpTryFixError && r == domain.ResultFailed),
		State:   m.State(),
	}
	h.finish(op, m, before, requester, r, reply)
	return reply, nil
}

func (h *Host) propertyCommand(op, module, property, requester string, run func(*domain.Module) domain.Result) (Reply, error) {
	m, err := h.lookup(module)
	if err != nil {
		return h.reject(op, module, property, requester, err)
	}

	before := m.State()
	valueBefore, _ := m.Property(property)
	// The expected step must be read before the module consumes or rejects it.
	expected, hasNext := nextAction(m)

	r := run(m)
	value, found := m.Property(property)
	reply := Reply{
		Module:   module,
		Property: property,
		Code:     int(r),
		Text:     propertyText(r, property, value, expected, hasNext, m, h.now()),
		IsError:  r.Rejected(),
		State:    m.State(),
	}
	if found == domain.ResultOK {
		reply.Value = &value
	}

	if op != OpGetProperty && r == domain.ResultOK && value != valueBefore {
		h.notifier.PropertyState(module, property, value)
	}
	h.finish(op, m, before, requester, r, reply)
	return reply, nil
}

func (h *Host) finish(op string, m *domain.Module, before domain.ModuleState, requester string, r domain.Result, reply Reply) {
	h.recorder.CommandResult(op, r)
	h.stateChanged(m, before)
	if op != OpGetState && op != OpGetProperty {
		h.dirty = true
	}
	h.notifier.CommandOutput(m.Name(), requester, reply.Text, reply.IsError)

	fields := []ports.Field{
		ports.String("op", op),
		ports.String("module", m.Name()),
		ports.String("requester", requester),
		ports.Int("code", reply.Code),
		ports.Stringer("state", m.State()),
	}
	if reply.Property != "" {
		fields = append(fields, ports.String("property", reply.Property))
	}
	switch {
	case r.Fault():
		h.logger.Error("sequence violation", fields...)
	case reply.IsError:
		h.logger.Info("command rejected", fields...)
	default:
		h.logger.Debug("command applied", fields...)
	}
}

// nextAction returns the action the module expects next, if a sequence is
// running and not finished.
func nextAction(m *domain.Module) (domain.Action, bool) {
	var seq []domain.Action
	switch m.State() {
	case domain.StateComingUp:
		seq = m.StartupActions()
	case domain.StateGoingDown:
		seq = m.ShutdownActions()
	default:
		return domain.Action{}, false
	}
	next := m.LastActionIndex() + 1
	if next >= len(seq) {
		return domain.Action{}, false
	}
	return seq[next], true
}
