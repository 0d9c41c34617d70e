package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice records every command it receives.
type fakeDevice struct {
	enabled  bool
	commands []bool
}

func (d *fakeDevice) Enabled() bool { return d.enabled }

func (d *fakeDevice) SetEnabled(enabled bool) {
	d.enabled = enabled
	d.commands = append(d.commands, enabled)
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func reactorConfig() ModuleConfig {
	return ModuleConfig{
		Properties: `
			breaker off 1 1
			coolant off 2 2
		`,
		Startup:      "set breaker\nset coolant",
		Shutdown:     "reset coolant\nreset breaker",
		DefaultState: false,
		Cooldown:     5 * time.Second,
	}
}

func newReactor(t *testing.T) (*Module, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{enabled: true}
	m := NewModule("Reactor", reactorConfig(), dev)
	var faults Faults
	m.Init(&faults)
	require.NoError(t, faults.Err())
	return m, dev
}

func TestModule_Init(t *testing.T) {
	m, dev := newReactor(t)

	assert.Equal(t, StateDisabled, m.State())
	assert.False(t, dev.enabled, "init forces the device to the default")
	assert.Equal(t, []PropertyView{{"breaker", false}, {"coolant", false}}, m.Properties())
	assert.Equal(t, []Action{{"breaker", true}, {"coolant", true}}, m.StartupActions())
	assert.Equal(t, []Action{{"coolant", false}, {"breaker", false}}, m.ShutdownActions())
	assert.Equal(t, 5*time.Second, m.Cooldown())
}

func TestModule_Init_DefaultEnabled(t *testing.T) {
	cfg := reactorConfig()
	cfg.DefaultState = true
	dev := &fakeDevice{}
	m := NewModule("Reactor", cfg, dev)
	var faults Faults
	m.Init(&faults)

	assert.Equal(t, StateEnabled, m.State())
	assert.True(t, dev.enabled)
	assert.True(t, m.CommandedEnabled())
}

func TestModule_Init_Faults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ModuleConfig
		wantKinds []error
	}{
		{
			name:      "missing properties stops init",
			cfg:       ModuleConfig{Startup: "set a", Shutdown: "reset a"},
			wantKinds: []error{ErrMissingValue},
		},
		{
			name: "malformed property line is skipped",
			cfg: ModuleConfig{
				Properties: "a off 1 1\nb maybe 1 1\nc off 1",
				Startup:    "set a",
				Shutdown:   "reset a",
			},
			wantKinds: []error{ErrPropertyParse, ErrPropertyParse},
		},
		{
			name: "malformed action line is skipped",
			cfg: ModuleConfig{
				Properties: "a off 1 1",
				Startup:    "set a\nflip a",
				Shutdown:   "reset a",
			},
			wantKinds: []error{ErrActionParse},
		},
		{
			name: "undeclared property in both sequences",
			cfg: ModuleConfig{
				Properties: "a off 1 1",
				Startup:    "set a\nset ghost",
				Shutdown:   "reset ghost",
			},
			wantKinds: []error{ErrPropertyMismatch, ErrPropertyMismatch},
		},
		{
			name: "empty shutdown",
			cfg: ModuleConfig{
				Properties: "a off 1 1",
				Startup:    "set a",
			},
			wantKinds: []error{ErrMissingValue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModule("M", tt.cfg, &fakeDevice{})
			var faults Faults
			m.Init(&faults)

			require.Equal(t, len(tt.wantKinds), faults.Count(), "faults: %v", faults.Err())
			for i, f := range faults.List() {
				assert.ErrorIs(t, f, tt.wantKinds[i])
				assert.Equal(t, "M", f.Module)
			}
			assert.ErrorIs(t, faults.Err(), ErrInitFailed)
			assert.True(t, m.State().Valid())
		})
	}
}

// Scenario: startup runs in declared order, gated by each property's delay.
func TestModule_StartupSequence(t *testing.T) {
	m, dev := newReactor(t)

	require.Equal(t, ResultOK, m.SetState(t0, true))
	assert.Equal(t, StateComingUp, m.State())
	assert.Equal(t, -1, m.LastActionIndex())

	require.Equal(t, ResultOK, m.SetProperty(t0, "breaker", true))
	assert.Equal(t, t0.Add(time.Second), m.DelayTarget())

	assert.Equal(t, ResultNotYet, m.SetProperty(t0.Add(500*time.Millisecond), "coolant", true))
	v, _ := m.Property("coolant")
	assert.False(t, v, "rejected change must not mutate")

	t1 := t0.Add(time.Second)
	require.Equal(t, ResultOK, m.SetProperty(t1, "coolant", true))
	assert.Equal(t, t1.Add(2*time.Second), m.DelayTarget())

	assert.Equal(t, CheckNoOp, m.CheckState(t1.Add(time.Second)))
	assert.Equal(t, StateComingUp, m.State())

	assert.Equal(t, CheckEnabled, m.CheckState(t1.Add(2*time.Second)))
	assert.Equal(t, StateEnabled, m.State())
	assert.True(t, dev.enabled)
}

// Scenario: skipping a step is a wrong-property fault.
func TestModule_SkippedStep(t *testing.T) {
	m, _ := newReactor(t)
	require.Equal(t, ResultOK, m.SetState(t0, true))

	assert.Equal(t, ResultWrongProperty, m.SetProperty(t0, "coolant", true))
	assert.Equal(t, StateError, m.State())
	v, _ := m.Property("coolant")
	assert.False(t, v)
}

func TestModule_WrongValue(t *testing.T) {
	m, _ := newReactor(t)
	require.Equal(t, ResultOK, m.ToggleState(t0))

	assert.Equal(t, ResultWrongValue, m.SetProperty(t0, "breaker", false))
	assert.Equal(t, StateError, m.State())
}

func TestModule_PropertyBeyondSequenceEnd(t *testing.T) {
	m, _ := newReactor(t)
	require.Equal(t, ResultOK, m.SetState(t0, true))
	require.Equal(t, ResultOK, m.SetProperty(t0, "breaker", true))
	t1 := t0.Add(time.Second)
	require.Equal(t, ResultOK, m.SetProperty(t1, "coolant", true))

	assert.Equal(t, ResultWrongProperty, m.ToggleProperty(t1.Add(2*time.Second), "breaker"))
	assert.Equal(t, StateError, m.State())
}

// Scenario: the fix only succeeds once every property is back at default.
func TestModule_TryFixError(t *testing.T) {
	m, _ := newReactor(t)
	require.Equal(t, ResultOK, m.SetState(t0, true))
	require.Equal(t, ResultWrongProperty, m.SetProperty(t0, "coolant", true))

	// In Error, properties change without sequence validation.
	require.Equal(t, ResultOK, m.SetProperty(t0, "coolant", true))

	for i := 0; i < 3; i++ {
		assert.Equal(t, ResultFailed, m.TryFixError())
		assert.Equal(t, StateError, m.State())
	}

	t1 := t0.Add(2 * time.Second)
	require.Equal(t, ResultOK, m.ToggleProperty(t1, "coolant"))
	assert.Equal(t, ResultOK, m.TryFixError())
	assert.Equal(t, StateDisabled, m.State())

	assert.Equal(t, ResultWrongState, m.TryFixError(), "fix succeeds exactly once")
}

func TestModule_ShutdownAndCooldown(t *testing.T) {
	cfg := reactorConfig()
	cfg.DefaultState = true
	cfg.Properties = "breaker on 1 1\ncoolant on 2 3"
	dev := &fakeDevice{}
	m := NewModule("Reactor", cfg, dev)
	var faults Faults
	m.Init(&faults)
	require.NoError(t, faults.Err())

	require.Equal(t, ResultShutdown, m.SetState(t0, false))
	assert.Equal(t, StateGoingDown, m.State())
	assert.False(t, dev.enabled, "shutdown forces the device off immediately")

	require.Equal(t, ResultOK, m.SetProperty(t0, "coolant", false))
	assert.Equal(t, t0.Add(3*time.Second), m.DelayTarget())
	t1 := t0.Add(3 * time.Second)
	require.Equal(t, ResultOK, m.SetProperty(t1, "breaker", false))

	t2 := t1.Add(time.Second)
	assert.Equal(t, CheckDisabled, m.CheckState(t2))
	assert.Equal(t, StateDisabled, m.State())
	assert.Equal(t, t2.Add(5*time.Second), m.DelayTarget())

	assert.Equal(t, ResultNotYet, m.ToggleState(t2.Add(4*time.Second)))
	assert.Equal(t, ResultOK, m.ToggleState(t2.Add(5*time.Second)))
	assert.Equal(t, StateComingUp, m.State())
}

func TestModule_SetState_Rejections(t *testing.T) {
	m, _ := newReactor(t)

	assert.Equal(t, ResultNoOp, m.SetState(t0, false))

	require.Equal(t, ResultOK, m.SetState(t0, true))
	assert.Equal(t, ResultWrongState, m.SetState(t0, true))
	assert.Equal(t, ResultWrongState, m.SetState(t0, false))
	assert.Equal(t, ResultWrongState, m.ToggleState(t0))

	require.Equal(t, ResultOK, m.SetProperty(t0, "breaker", true))
	assert.Equal(t, ResultNotYet, m.SetState(t0, false))
	assert.Equal(t, ResultNotYet, m.ToggleState(t0))
}

func TestModule_PropertyGuards(t *testing.T) {
	m, _ := newReactor(t)

	assert.Equal(t, ResultWrongState, m.SetProperty(t0, "breaker", true))
	assert.Equal(t, ResultWrongState, m.ToggleProperty(t0, "breaker"))

	require.Equal(t, ResultOK, m.ToggleState(t0))
	assert.Equal(t, ResultNotFound, m.SetProperty(t0, "ghost", true))
	assert.Equal(t, ResultNotFound, m.ToggleProperty(t0, "ghost"))
	assert.Equal(t, StateComingUp, m.State())

	_, r := m.Property("ghost")
	assert.Equal(t, ResultNotFound, r)
}

func TestModule_CheckState_ForcesDriftOnlyWhenStable(t *testing.T) {
	m, dev := newReactor(t)

	dev.enabled = true
	assert.Equal(t, CheckForced, m.CheckState(t0))
	assert.False(t, dev.enabled)
	assert.Equal(t, StateDisabled, m.State())
	assert.Equal(t, CheckNoOp, m.CheckState(t0))

	require.Equal(t, ResultOK, m.ToggleState(t0))
	dev.enabled = true
	assert.Equal(t, CheckNoOp, m.CheckState(t0))
	assert.True(t, dev.enabled)
}

func TestModule_ToggleProperty_UsesTargetDelay(t *testing.T) {
	m, _ := newReactor(t)
	require.Equal(t, ResultOK, m.ToggleState(t0))
	require.Equal(t, ResultOK, m.ToggleProperty(t0, "breaker"))

	v, r := m.Property("breaker")
	assert.Equal(t, ResultOK, r)
	assert.True(t, v)
	assert.Equal(t, 0, m.LastActionIndex())
	assert.Equal(t, t0.Add(time.Second), m.DelayTarget())
}

// Property: every observed transition is an edge of the state graph, and
// state is always one of the five values, for an arbitrary command stream.
func TestModule_TransitionClosure(t *testing.T) {
	allowed := map[ModuleState]map[ModuleState]bool{
		StateDisabled:  {StateComingUp: true, StateError: true},
		StateComingUp:  {StateEnabled: true, StateError: true},
		StateEnabled:   {StateGoingDown: true, StateError: true},
		StateGoingDown: {StateDisabled: true, StateError: true},
		StateError:     {StateDisabled: true, StateEnabled: true},
	}

	m, dev := newReactor(t)
	now := t0
	ops := []func(){
		func() { m.ToggleState(now) },
		func() { m.SetState(now, true) },
		func() { m.SetState(now, false) },
		func() { m.TryFixError() },
		func() { m.CheckState(now) },
		func() { m.ToggleProperty(now, "breaker") },
		func() { m.ToggleProperty(now, "coolant") },
		func() { m.SetProperty(now, "breaker", false) },
		func() { m.SetProperty(now, "coolant", false) },
		func() { dev.enabled = !dev.enabled },
	}

	// Deterministic pseudo-random walk.
	seed := uint32(7)
	for i := 0; i < 5000; i++ {
		seed = seed*1664525 + 1013904223
		before := m.State()
		ops[int(seed>>16)%len(ops)]()
		after := m.State()

		require.True(t, after.Valid())
		if before != after {
			require.True(t, allowed[before][after], "illegal transition %v -> %v at step %d", before, after, i)
		}
		now = now.Add(time.Duration(seed%1500) * time.Millisecond)
	}
}

func TestFaults_ErrJoinsAll(t *testing.T) {
	var f Faults
	assert.NoError(t, f.Err())

	f.Add(ErrMissingKey, "A", KeyStartup, "")
	f.Add(ErrActionParse, "B", KeyShutdown, "flip x")

	err := f.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.ErrorIs(t, err, ErrActionParse)
	assert.Contains(t, err.Error(), "module B key 'Shutdown'")

	var fault *ConfigFault
	require.True(t, errors.As(err, &fault))

	f.Reset()
	assert.Equal(t, 0, f.Count())
}
