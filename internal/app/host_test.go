package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/shipctl/internal/device"
	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
	"github.com/bft-labs/shipctl/internal/registry"
)

const shipModules = `
[Reactor]
Properties = """
breaker off 1 1
coolant off 2 2
"""
Startup = """
set breaker
set coolant
"""
Shutdown = """
reset coolant
reset breaker
"""
"Default State" = "off"
"Cooldown Delay" = 5

[Lights]
Properties = "bulbs on 0 0"
Startup = "set bulbs"
Shutdown = "reset bulbs"
"Default State" = "on"
"Cooldown Delay" = 0
Devices = ["Lamp A", "Lamp B"]
`

const brokenModules = `
[Reactor]
Properties = "breaker off 1 1"
Startup = "set breaker\nset ghost"
"Default State" = "off"
"Cooldown Delay" = 5
`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingNotifier records every notification as a short string.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(format string, args ...any) {
	n.mu.Lock()
	n.events = append(n.events, fmt.Sprintf(format, args...))
	n.mu.Unlock()
}

func (n *recordingNotifier) Reset() { n.add("reset") }
func (n *recordingNotifier) RegisterModule(name string, state domain.ModuleState, props []domain.PropertyView) {
	n.add("register %s %s %d", name, state, len(props))
}
func (n *recordingNotifier) ModulesLoaded() { n.add("loaded") }
func (n *recordingNotifier) ModuleState(name string, state domain.ModuleState) {
	n.add("state %s %s", name, state)
}
func (n *recordingNotifier) PropertyState(module, property string, state bool) {
	n.add("property %s %s %v", module, property, state)
}
func (n *recordingNotifier) CommandOutput(module, requester, text string, isError bool) {
	n.add("output %s %s %v %s", module, requester, isError, text)
}
func (n *recordingNotifier) CheckOutput(module, text string) {
	n.add("check %s %s", module, text)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recordingNotifier) Clear() {
	n.mu.Lock()
	n.events = nil
	n.mu.Unlock()
}

type fakeStatusRepo struct {
	mu      sync.Mutex
	saves   int
	last    ports.Status
	err     error
	loadErr error
}

func (r *fakeStatusRepo) Load(context.Context) (ports.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.loadErr
}

// entryLogger records messages with their fields.
type entryLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func (l *entryLogger) add(level, msg string, fields []ports.Field) {
	e := logEntry{level: level, msg: msg, fields: map[string]any{}}
	for _, f := range fields {
		e.fields[f.Key] = f.Value
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *entryLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func (l *entryLogger) Debug(msg string, fields ...ports.Field) { l.add("debug", msg, fields) }
func (l *entryLogger) Info(msg string, fields ...ports.Field)  { l.add("info", msg, fields) }
func (l *entryLogger) Warn(msg string, fields ...ports.Field)  { l.add("warn", msg, fields) }
func (l *entryLogger) Error(msg string, fields ...ports.Field) { l.add("error", msg, fields) }

func (r *fakeStatusRepo) Save(_ context.Context, st ports.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.err != nil {
		return r.err
	}
	r.last = st
	return nil
}

type hostFixture struct {
	host     *Host
	clock    *fakeClock
	notifier *recordingNotifier
	bank     *device.Bank
	status   *fakeStatusRepo
}

func newHostFixture(t *testing.T, modules string) *hostFixture {
	t.Helper()
	f := &hostFixture{
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
		bank:     device.NewBank(),
		status:   &fakeStatusRepo{},
	}
	f.host = NewHost(HostConfig{TickInterval: time.Millisecond}, HostDeps{
		Source:   registry.BytesSource{Data: []byte(modules), Format: registry.FormatTOML},
		Devices:  f.bank.Open,
		Notifier: f.notifier,
		Status:   f.status,
		Logger:   mockLogger{},
		Clock:    f.clock.Now,
	})
	return f
}

// tickUntilIdle ticks until the scheduler has nothing left, at most n times.
func (f *hostFixture) tickUntilIdle(t *testing.T, n int) int {
	t.Helper()
	for i := 1; i <= n; i++ {
		f.host.Tick()
		if s, p := f.host.Pending(); s == 0 && p == 0 {
			return i
		}
	}
	t.Fatalf("scheduler still busy after %d ticks", n)
	return n
}

func (f *hostFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.host.Start())
	f.tickUntilIdle(t, 10)
	require.Equal(t, PhaseRunning, f.host.Phase())
}

func TestHost_StartInitializesOneModulePerTick(t *testing.T) {
	f := newHostFixture(t, shipModules)
	require.NoError(t, f.host.Start())
	assert.Equal(t, PhaseInitializing, f.host.Phase())
	assert.NotEmpty(t, f.host.Session())

	// Two modules, then the completion step.
	ticks := f.tickUntilIdle(t, 10)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, PhaseRunning, f.host.Phase())
	assert.NoError(t, f.host.InitErr())

	assert.Equal(t, []string{
		"reset",
		"register Reactor Disabled 2",
		"register Lights Enabled 1",
		"loaded",
	}, f.notifier.Events())

	assert.True(t, f.bank.Block("Lamp A").Enabled())
	assert.True(t, f.bank.Block("Lamp B").Enabled())
	assert.False(t, f.bank.Block("Reactor").Enabled())

	assert.ErrorIs(t, f.host.Start(), domain.ErrAlreadyRunning)
}

func TestHost_ConfigFaultsFailTheSession(t *testing.T) {
	f := newHostFixture(t, brokenModules)
	require.NoError(t, f.host.Start())
	f.tickUntilIdle(t, 10)

	assert.Equal(t, PhaseFaulted, f.host.Phase())
	err := f.host.InitErr()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInitFailed)
	assert.ErrorIs(t, err, domain.ErrMissingKey)
	assert.ErrorIs(t, err, domain.ErrPropertyMismatch)

	assert.NotContains(t, f.notifier.Events(), "loaded")
	assert.False(t, f.host.RequestCheck(), "no checks after a failed init")

	reply, err := f.host.ToggleState(context.Background(), "Reactor", "console")
	assert.ErrorIs(t, err, domain.ErrNotRunning)
	assert.True(t, reply.IsError)
	assert.Equal(t, "modules failed to initialize", reply.Text)
}

func TestHost_UnparsableFileIsAFault(t *testing.T) {
	f := newHostFixture(t, "[Reactor")
	require.NoError(t, f.host.Start())
	f.tickUntilIdle(t, 5)

	assert.Equal(t, PhaseFaulted, f.host.Phase())
	assert.ErrorIs(t, f.host.InitErr(), domain.ErrConfigParse)
}

func TestHost_StartupSequenceThroughCommands(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	f.notifier.Clear()
	ctx := context.Background()

	reply, err := f.host.SetState(ctx, "Reactor", "console", true)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Code)
	assert.Equal(t, "startup sequence started", reply.Text)
	assert.Equal(t, domain.StateComingUp, reply.State)

	reply, err = f.host.SetProperty(ctx, "Reactor", "breaker", "console", true)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Code)
	require.NotNil(t, reply.Value)
	assert.True(t, *reply.Value)

	reply, err = f.host.ToggleProperty(ctx, "Reactor", "coolant", "console")
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultNotYet), reply.Code)
	assert.True(t, reply.IsError)
	assert.Contains(t, reply.Text, "retry in 1s")

	f.clock.Advance(time.Second)
	reply, err = f.host.ToggleProperty(ctx, "Reactor", "coolant", "console")
	require.NoError(t, err)
	assert.Equal(t, "coolant is on", reply.Text)

	// The sequence completes on the first check after the last delay.
	f.clock.Advance(2 * time.Second)
	require.True(t, f.host.RequestCheck())
	assert.False(t, f.host.RequestCheck(), "one pending check at a time")
	f.tickUntilIdle(t, 5)

	assert.Equal(t, []string{
		"state Reactor Starting Up",
		"output Reactor console false startup sequence started",
		"property Reactor breaker true",
		"output Reactor console false breaker is on",
		"output Reactor console true not ready, retry in 1s",
		"property Reactor coolant true",
		"output Reactor console false coolant is on",
		"check Reactor module enabled (Enabled)",
		"state Reactor Enabled",
	}, f.notifier.Events())
	assert.True(t, f.bank.Block("Reactor").Enabled())
}

func TestHost_SequenceViolationAndFix(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	ctx := context.Background()

	_, err := f.host.ToggleState(ctx, "Reactor", "ui-1")
	require.NoError(t, err)

	reply, err := f.host.SetProperty(ctx, "Reactor", "coolant", "ui-1", true)
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultWrongProperty), reply.Code)
	assert.Equal(t, `expected "set breaker", module in error`, reply.Text)
	assert.Equal(t, domain.StateError, reply.State)

	reply, err = f.host.SetProperty(ctx, "Reactor", "coolant", "ui-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Code, "properties move freely while in error")

	reply, err = f.host.TryFixError(ctx, "Reactor", "ui-1")
	require.NoError(t, err)
	assert.Equal(t, 0, reply.Code)
	assert.True(t, reply.IsError)
	assert.Equal(t, "properties not at default: coolant", reply.Text)

	f.clock.Advance(2 * time.Second)
	_, err = f.host.SetProperty(ctx, "Reactor", "coolant", "ui-1", false)
	require.NoError(t, err)

	reply, err = f.host.TryFixError(ctx, "Reactor", "ui-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Code)
	assert.Equal(t, "error cleared, module disabled", reply.Text)
	assert.Equal(t, domain.StateDisabled, reply.State)
}

func TestHost_WrongValueText(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	ctx := context.Background()

	_, err := f.host.SetState(ctx, "Reactor", "ui", true)
	require.NoError(t, err)
	reply, err := f.host.SetProperty(ctx, "Reactor", "breaker", "ui", false)
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultWrongValue), reply.Code)
	assert.Equal(t, "breaker must be on, module in error", reply.Text)
}

func TestHost_Standby(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	ctx := context.Background()

	reply, err := f.host.Standby(ctx, "Lights", "ui")
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultShutdown), reply.Code)
	assert.Equal(t, domain.StateGoingDown, reply.State)
	assert.False(t, f.bank.Block("Lamp A").Enabled(), "shutdown forces the devices off")

	reply, err = f.host.Standby(ctx, "Lights", "ui")
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultWrongState), reply.Code)
	assert.Equal(t, "not permitted while Shutting Down", reply.Text)

	reply, err = f.host.Standby(ctx, "Reactor", "ui")
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultOK), reply.Code)
	assert.Equal(t, domain.StateComingUp, reply.State)
}

func TestHost_UnknownModuleAndProperty(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	f.notifier.Clear()
	ctx := context.Background()

	reply, err := f.host.GetState(ctx, "Hyperdrive", "ui")
	assert.ErrorIs(t, err, domain.ErrUnknownModule)
	assert.Equal(t, "module not found", reply.Text)
	assert.Equal(t, []string{"output Hyperdrive ui true module not found"}, f.notifier.Events())

	reply, err = f.host.GetProperty(ctx, "Reactor", "warp", "ui")
	require.NoError(t, err)
	assert.Equal(t, int(domain.ResultNotFound), reply.Code)
	assert.Equal(t, "property not found", reply.Text)
	assert.Nil(t, reply.Value)

	reply, err = f.host.GetProperty(ctx, "Reactor", "breaker", "ui")
	require.NoError(t, err)
	assert.Equal(t, "breaker is off", reply.Text)
}

func TestHost_CheckForcesTamperedDevices(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	f.notifier.Clear()

	f.bank.Set("Lamp B", false)
	require.True(t, f.host.RequestCheck())
	f.tickUntilIdle(t, 5)

	assert.True(t, f.bank.Block("Lamp B").Enabled())
	assert.Equal(t, []string{"check Lights state forced (Enabled)"}, f.notifier.Events())
}

func TestHost_CheckQueuedDuringInitRunsAfterIt(t *testing.T) {
	f := newHostFixture(t, shipModules)
	require.NoError(t, f.host.Start())
	f.bank.Set("Lamp A", false)
	require.True(t, f.host.RequestCheck())

	f.tickUntilIdle(t, 10)

	assert.Equal(t, PhaseRunning, f.host.Phase())
	events := f.notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "loaded", events[3])
}

func TestHost_Reset(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	first := f.host.Session()

	_, err := f.host.ToggleState(context.Background(), "Reactor", "ui")
	require.NoError(t, err)

	require.NoError(t, f.host.Reset("modules file changed"))
	assert.Equal(t, PhaseInitializing, f.host.Phase())
	assert.NotEqual(t, first, f.host.Session())

	f.tickUntilIdle(t, 10)
	assert.Equal(t, PhaseRunning, f.host.Phase())
	m, ok := f.host.Registry().Lookup("Reactor")
	require.True(t, ok)
	assert.Equal(t, domain.StateDisabled, m.State(), "new session starts from the defaults")
}

func TestHost_PersistsStatusWithBackoff(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)

	f.status.mu.Lock()
	saves := f.status.saves
	last := f.status.last
	f.status.err = errors.New("disk full")
	f.status.mu.Unlock()

	require.Positive(t, saves)
	assert.Equal(t, "Running", last.Phase)
	require.Len(t, last.Modules, 2)
	assert.Equal(t, "Reactor", last.Modules[0].Name)
	assert.Equal(t, "Disabled", last.Modules[0].StateName)

	_, err := f.host.ToggleState(context.Background(), "Reactor", "ui")
	require.NoError(t, err)
	f.host.Tick()
	f.host.Tick()
	f.host.Tick()

	f.status.mu.Lock()
	assert.Equal(t, saves+1, f.status.saves, "failed save is not retried before the backoff")
	f.status.err = nil
	f.status.mu.Unlock()

	f.clock.Advance(time.Second)
	f.host.Tick()

	f.status.mu.Lock()
	defer f.status.mu.Unlock()
	assert.Equal(t, saves+2, f.status.saves)
	assert.Equal(t, domain.StateComingUp, f.status.last.Modules[0].State)
}

func TestHost_Stop(t *testing.T) {
	f := newHostFixture(t, shipModules)
	f.start(t)
	require.True(t, f.host.RequestCheck())

	require.NoError(t, f.host.Stop())
	assert.Equal(t, PhaseStopped, f.host.Phase())
	serial, parallel := f.host.Pending()
	assert.Zero(t, serial+parallel)

	assert.ErrorIs(t, f.host.Stop(), domain.ErrNotRunning)
}

func TestHost_RunAndSerialized(t *testing.T) {
	f := newHostFixture(t, shipModules)
	require.NoError(t, f.host.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.host.Run(ctx) }()

	ctrl := NewSerialized(f.host)
	require.Eventually(t, func() bool {
		st, err := ctrl.Status(ctx)
		return err == nil && st.Phase == "Running"
	}, 2*time.Second, 5*time.Millisecond)

	reply, err := ctrl.SetState(ctx, "Reactor", "http", true)
	require.NoError(t, err)
	assert.Equal(t, domain.StateComingUp, reply.State)

	st, err := ctrl.Module(ctx, "Reactor")
	require.NoError(t, err)
	assert.Equal(t, "Starting Up", st.StateName)

	_, err = ctrl.Module(ctx, "Hyperdrive")
	assert.ErrorIs(t, err, domain.ErrUnknownModule)

	queued, err := ctrl.Check(ctx)
	require.NoError(t, err)
	assert.True(t, queued)

	require.NoError(t, ctrl.Reset(ctx, "test"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// With the loop gone, Do gives up with the caller's context.
	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err = ctrl.GetState(short, "Reactor", "http")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHost_StartReportsPreviousSession(t *testing.T) {
	logger := &entryLogger{}
	status := &fakeStatusRepo{last: ports.Status{
		Session: "earlier",
		Phase:   "Running",
		Modules: []ports.ModuleStatus{
			{Name: "Reactor", State: domain.StateError},
			{Name: "Antenna", State: domain.StateEnabled},
		},
	}}
	h := NewHost(HostConfig{}, HostDeps{
		Source:  registry.BytesSource{Data: []byte(shipModules), Format: registry.FormatTOML},
		Devices: device.NewBank().Open,
		Status:  status,
		Logger:  logger,
	})
	require.NoError(t, h.Start())

	e, ok := logger.find("previous session")
	require.True(t, ok)
	assert.Equal(t, "earlier", e.fields["session"])
	assert.Equal(t, "Running", e.fields["phase"])
	assert.Equal(t, 2, e.fields["modules"])
	assert.Equal(t, []string{"Reactor"}, e.fields["errored"])
}

func TestHost_StartWithoutPreviousSession(t *testing.T) {
	for _, tt := range []struct {
		name   string
		status *fakeStatusRepo
		warned bool
	}{
		{"no status yet", &fakeStatusRepo{}, false},
		{"unreadable status", &fakeStatusRepo{loadErr: errors.New("corrupt")}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			logger := &entryLogger{}
			h := NewHost(HostConfig{}, HostDeps{
				Source:  registry.BytesSource{Data: []byte(shipModules), Format: registry.FormatTOML},
				Devices: device.NewBank().Open,
				Status:  tt.status,
				Logger:  logger,
			})
			require.NoError(t, h.Start())

			_, ok := logger.find("previous session")
			assert.False(t, ok)
			_, warned := logger.find("failed to load previous status")
			assert.Equal(t, tt.warned, warned)
			assert.Equal(t, PhaseInitializing, h.Phase())
		})
	}
}
