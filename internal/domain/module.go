package domain

import "time"

// Configuration keys of a module section.
const (
	KeyProperties   = "Properties"
	KeyStartup      = "Startup"
	KeyShutdown     = "Shutdown"
	KeyDefaultState = "Default State"
	KeyCooldown     = "Cooldown Delay"
	KeyDevices      = "Devices"
)

// RequiredKeys lists the keys every module section must declare.
var RequiredKeys = []string{KeyProperties, KeyStartup, KeyShutdown, KeyDefaultState, KeyCooldown}

// ModuleConfig is the declarative configuration of one module, still in
// text form. Module.Init parses it.
type ModuleConfig struct {
	Properties   string
	Startup      string
	Shutdown     string
	DefaultState bool
	Cooldown     time.Duration
}

// Module is a named group of devices with its own lifecycle state machine.
//
// A Module is not safe for concurrent use. It is owned by a single logical
// thread which passes the current instant into every time-gated operation.
type Module struct {
	name   string
	cfg    ModuleConfig
	device Device

	state      ModuleState
	enabled    bool
	properties []*Property
	startup    []Action
	shutdown   []Action

	// lastActionIndex is the index of the last applied action of the active
	// sequence, -1 before the first one.
	lastActionIndex int
	delayTarget     time.Time
	cooldown        time.Duration
}

// NewModule creates a module in the Disabled state. Call Init before use.
func NewModule(name string, cfg ModuleConfig, device Device) *Module {
	return &Module{
		name:            name,
		cfg:             cfg,
		device:          device,
		state:           StateDisabled,
		lastActionIndex: -1,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// State returns the current lifecycle state.
func (m *Module) State() ModuleState { return m.state }

// CommandedEnabled returns the aggregate target of the module's devices.
func (m *Module) CommandedEnabled() bool { return m.enabled }

// DelayTarget returns the instant before which no change is accepted.
func (m *Module) DelayTarget() time.Time { return m.delayTarget }

// LastActionIndex returns the index of the last applied action of the
// active sequence. Only meaningful while ComingUp or GoingDown.
func (m *Module) LastActionIndex() int { return m.lastActionIndex }

// Cooldown returns the quiescent period enforced after a full shutdown.
func (m *Module) Cooldown() time.Duration { return m.cooldown }

// StartupActions returns a copy of the startup sequence.
func (m *Module) StartupActions() []Action { return append([]Action(nil), m.startup...) }

// ShutdownActions returns a copy of the shutdown sequence.
func (m *Module) ShutdownActions() []Action { return append([]Action(nil), m.shutdown...) }

// Init parses the module configuration, sets the initial state from the
// configured default and forces the device to match it.
//
// Configuration problems are recorded on faults and never abort: the module
// stays usable with whatever was parsed.
func (m *Module) Init(faults *Faults) {
	m.enabled = m.cfg.DefaultState
	m.state = defaultState(m.enabled)
	m.lastActionIndex = -1
	m.forceDevice()

	m.cooldown = m.cfg.Cooldown

	m.properties = m.parseProperties(faults)
	if len(m.properties) == 0 {
		faults.Add(ErrMissingValue, m.name, KeyProperties, "")
		return
	}

	m.startup = m.parseActions(KeyStartup, m.cfg.Startup, faults)
	if len(m.startup) == 0 {
		faults.Add(ErrMissingValue, m.name, KeyStartup, "")
		return
	}
	m.checkActions(KeyStartup, m.startup, faults)

	m.shutdown = m.parseActions(KeyShutdown, m.cfg.Shutdown, faults)
	if len(m.shutdown) == 0 {
		faults.Add(ErrMissingValue, m.name, KeyShutdown, "")
		return
	}
	m.checkActions(KeyShutdown, m.shutdown, faults)
}

func (m *Module) parseProperties(faults *Faults) []*Property {
	var props []*Property
	for _, line := range splitLines(m.cfg.Properties) {
		p, ok := ParseProperty(line)
		if !ok {
			faults.Add(ErrPropertyParse, m.name, KeyProperties, line)
			continue
		}
		props = append(props, p)
	}
	return props
}

func (m *Module) parseActions(key, raw string, faults *Faults) []Action {
	var actions []Action
	for _, line := range splitLines(raw) {
		a, ok := ParseAction(line)
		if !ok {
			faults.Add(ErrActionParse, m.name, key, line)
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

func (m *Module) checkActions(key string, actions []Action, faults *Faults) {
	for _, a := range actions {
		if m.property(a.Property) == nil {
			faults.Add(ErrPropertyMismatch, m.name, key, a.Property)
		}
	}
}

// CheckState completes a finished startup or shutdown sequence, or forces the
// device back to the commanded value when it drifted in a stable state.
// It is idempotent and meant to be called periodically.
func (m *Module) CheckState(now time.Time) CheckResult {
	switch {
	case m.state == StateComingUp && m.sequenceDone(m.startup) && !now.Before(m.delayTarget):
		m.state = StateEnabled
		m.enabled = true
		m.forceDevice()
		return CheckEnabled
	case m.state == StateGoingDown && m.sequenceDone(m.shutdown) && !now.Before(m.delayTarget):
		m.state = StateDisabled
		m.delayTarget = now.Add(m.cooldown)
		return CheckDisabled
	}

	if m.state.Stable() && m.needsStateChange() {
		m.forceDevice()
		return CheckForced
	}
	return CheckNoOp
}

// ToggleState begins startup from Disabled or shutdown from Enabled.
func (m *Module) ToggleState(now time.Time) Result {
	if now.Before(m.delayTarget) {
		return ResultNotYet
	}
	switch m.state {
	case StateDisabled:
		m.beginStartup()
	case StateEnabled:
		m.beginShutdown()
	default:
		return ResultWrongState
	}
	return ResultOK
}

// SetState begins startup (target true) or shutdown (target false).
func (m *Module) SetState(now time.Time, target bool) Result {
	if now.Before(m.delayTarget) {
		return ResultNotYet
	}
	if !m.state.Stable() {
		return ResultWrongState
	}
	switch {
	case target && m.state == StateDisabled:
		m.beginStartup()
		return ResultOK
	case !target && m.state == StateEnabled:
		m.beginShutdown()
		return ResultShutdown
	default:
		return ResultNoOp
	}
}

func (m *Module) beginStartup() {
	m.state = StateComingUp
	m.lastActionIndex = -1
}

func (m *Module) beginShutdown() {
	m.state = StateGoingDown
	m.enabled = false
	m.forceDevice()
	m.lastActionIndex = -1
}

// TryFixError restores the configured default state once every property is
// back at its default. It returns ResultFailed without mutating anything
// otherwise, and ResultWrongState when the module is not in Error.
func (m *Module) TryFixError() Result {
	if m.state != StateError {
		return ResultWrongState
	}
	if len(m.OffDefault()) > 0 {
		return ResultFailed
	}
	m.enabled = m.cfg.DefaultState
	m.state = defaultState(m.enabled)
	m.lastActionIndex = -1
	return ResultOK
}

// OffDefault returns the names of the properties not at their default.
func (m *Module) OffDefault() []string {
	var names []string
	for _, p := range m.properties {
		if !p.AtDefault() {
			names = append(names, p.Name)
		}
	}
	return names
}

// Properties returns a snapshot of every property in declaration order.
func (m *Module) Properties() []PropertyView {
	views := make([]PropertyView, 0, len(m.properties))
	for _, p := range m.properties {
		views = append(views, PropertyView{Name: p.Name, State: p.State})
	}
	return views
}

// Property returns the state of the named property. Reads are not gated.
func (m *Module) Property(name string) (bool, Result) {
	p := m.property(name)
	if p == nil {
		return false, ResultNotFound
	}
	return p.State, ResultOK
}

// ToggleProperty flips the named property through the sequence validator.
func (m *Module) ToggleProperty(now time.Time, name string) Result {
	if r := m.guardProperty(now); r != ResultOK {
		return r
	}
	p := m.property(name)
	if p == nil {
		return ResultNotFound
	}
	return m.applyProperty(now, p, !p.State)
}

// SetProperty sets the named property through the sequence validator.
func (m *Module) SetProperty(now time.Time, name string, state bool) Result {
	if r := m.guardProperty(now); r != ResultOK {
		return r
	}
	p := m.property(name)
	if p == nil {
		return ResultNotFound
	}
	return m.applyProperty(now, p, state)
}

// guardProperty applies the timing and state guards shared by property edits.
// Property edits are legal only while a sequence runs or the module is in Error.
func (m *Module) guardProperty(now time.Time) Result {
	if now.Before(m.delayTarget) {
		return ResultNotYet
	}
	if m.state != StateError && !m.state.InFlight() {
		return ResultWrongState
	}
	return ResultOK
}

// applyProperty validates the change against the next unconsumed action of
// the active sequence. A mismatch moves the module to Error and leaves the
// property untouched.
func (m *Module) applyProperty(now time.Time, p *Property, state bool) Result {
	if seq := m.activeSequence(); m.state.InFlight() {
		next := m.lastActionIndex + 1
		if next >= len(seq) || seq[next].Property != p.Name {
			m.state = StateError
			return ResultWrongProperty
		}
		if seq[next].NeededState != state {
			m.state = StateError
			return ResultWrongValue
		}
		m.lastActionIndex = next
	}

	m.delayTarget = now.Add(p.delayFor(state))
	p.State = state
	return ResultOK
}

func (m *Module) activeSequence() []Action {
	switch m.state {
	case StateComingUp:
		return m.startup
	case StateGoingDown:
		return m.shutdown
	default:
		return nil
	}
}

func (m *Module) sequenceDone(seq []Action) bool {
	return m.lastActionIndex == len(seq)-1
}

func (m *Module) property(name string) *Property {
	for _, p := range m.properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *Module) needsStateChange() bool {
	if m.device == nil {
		return false
	}
	return !deviceAgrees(m.device, m.enabled)
}

func (m *Module) forceDevice() {
	if m.device != nil {
		m.device.SetEnabled(m.enabled)
	}
}
