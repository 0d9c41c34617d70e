package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
	"github.com/bft-labs/shipctl/internal/registry"
	"github.com/bft-labs/shipctl/internal/scheduler"
)

// Default host configuration values.
const (
	DefaultTickInterval = 100 * time.Millisecond
	statusSaveTimeout   = 5 * time.Second
)

// HostConfig contains configuration for the controller host.
type HostConfig struct {
	// TickInterval is how often the host loop runs a scheduler tick when
	// one was requested.
	TickInterval time.Duration
}

// Host owns the modules of the current session and runs every operation
// on them from a single logical thread.
//
// Tick, Start, Reset, RequestCheck and the Commands methods of Host are not
// safe for concurrent use. Run drives them from one goroutine; other
// goroutines go through Do or Serialized.
type Host struct {
	config   HostConfig
	source   registry.Source
	devices  registry.DeviceOpener
	notifier ports.Notifier
	recorder ports.Recorder
	status   ports.StatusRepository
	logger   ports.Logger
	now      func() time.Time

	lifecycle *Lifecycle
	sched     *scheduler.Scheduler
	reg       *registry.Registry
	faults    domain.Faults
	initErr   error
	session   string

	wake         bool
	dirty        bool
	checkPending bool
	saveBackoff  *backoff

	requests chan request
}

type request struct {
	fn   func()
	done chan struct{}
}

// HostDeps groups the collaborators of a Host. Notifier, Recorder, Status
// and Clock are optional.
type HostDeps struct {
	Source   registry.Source
	Devices  registry.DeviceOpener
	Notifier ports.Notifier
	Recorder ports.Recorder
	Status   ports.StatusRepository
	Logger   ports.Logger
	Emitter  EventEmitter
	Clock    func() time.Time
}

// NewHost creates a stopped host.
func NewHost(config HostConfig, deps HostDeps) *Host {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	h := &Host{
		config:      config,
		source:      deps.Source,
		devices:     deps.Devices,
		notifier:    deps.Notifier,
		recorder:    deps.Recorder,
		status:      deps.Status,
		logger:      deps.Logger,
		now:         deps.Clock,
		saveBackoff: newBackoff(DefaultBackoffInitial, DefaultBackoffMax),
		requests:    make(chan request),
	}
	if h.notifier == nil {
		h.notifier = nopNotifier{}
	}
	if h.recorder == nil {
		h.recorder = ports.NoopRecorder{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.lifecycle = NewLifecycle(deps.Logger, deps.Emitter)
	h.sched = scheduler.New(scheduler.WakerFunc(func() { h.wake = true }), deps.Logger)
	h.reg = registry.New(nil, deps.Devices)
	return h
}

// Phase returns the lifecycle phase.
func (h *Host) Phase() Phase {
	return h.lifecycle.Phase()
}

// Lifecycle returns the lifecycle manager.
func (h *Host) Lifecycle() *Lifecycle {
	return h.lifecycle
}

// Session returns the id of the current session.
func (h *Host) Session() string {
	return h.session
}

// InitErr returns the joined configuration faults of the last session, or
// nil when it initialized cleanly or is still initializing.
func (h *Host) InitErr() error {
	return h.initErr
}

// Registry returns the modules of the current session.
func (h *Host) Registry() *registry.Registry {
	return h.reg
}

// Pending returns the scheduler queue depths.
func (h *Host) Pending() (serial, parallel int) {
	return h.sched.Pending()
}

// Start loads the modules and queues their initialization.
func (h *Host) Start() error {
	if !h.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := h.lifecycle.TransitionTo(PhaseInitializing, "start"); err != nil {
		return err
	}
	h.reportPrevious()
	h.beginSession()
	return nil
}

// reportPrevious logs the status the last run left behind, naming the
// modules it left in Error.
func (h *Host) reportPrevious() {
	if h.status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusSaveTimeout)
	defer cancel()
	prev, err := h.status.Load(ctx)
	if err != nil {
		h.logger.Warn("failed to load previous status", ports.Err(err))
		return
	}
	if prev.Session == "" {
		return
	}
	var errored []string
	for _, m := range prev.Modules {
		if m.State == domain.StateError {
			errored = append(errored, m.Name)
		}
	}
	h.logger.Info("previous session",
		ports.String("session", prev.Session),
		ports.String("phase", prev.Phase),
		ports.Time("updated_at", prev.UpdatedAt),
		ports.Int("modules", len(prev.Modules)),
		ports.Any("errored", errored),
	)
}

// Reset cancels every queued task, reloads the modules and initializes
// them again as a new session.
func (h *Host) Reset(reason string) error {
	if h.lifecycle.Phase() != PhaseInitializing {
		if err := h.lifecycle.TransitionTo(PhaseInitializing, reason); err != nil {
			return err
		}
	}
	h.sched.Reset()
	h.beginSession()
	return nil
}

// Stop cancels queued work and persists a final status.
func (h *Host) Stop() error {
	if err := h.lifecycle.TransitionTo(PhaseStopping, "stop"); err != nil {
		return err
	}
	h.sched.Reset()
	h.checkPending = false
	h.dirty = true
	h.saveBackoff.Reset()
	h.persist()
	return h.lifecycle.TransitionTo(PhaseStopped, "stopped")
}

func (h *Host) beginSession() {
	h.session = uuid.NewString()
	h.faults.Reset()
	h.initErr = nil
	h.checkPending = false

	defs, err := h.source.Definitions(&h.faults)
	if err != nil {
		h.faults.Add(domain.ErrConfigParse, "", "", err.Error())
	}
	h.reg = registry.New(defs, h.devices)
	h.notifier.Reset()
	h.dirty = true

	h.logger.Info("loading modules",
		ports.String("session", h.session),
		ports.Int("modules", h.reg.Len()),
	)

	h.sched.AddSerial(scheduler.NewListTask("init modules", h.reg.Modules(), h.initModule, h.initDone))
}

func (h *Host) initModule(_ int, m *domain.Module) {
	m.Init(&h.faults)
	h.recorder.ModuleState(m.Name(), m.State())
	h.dirty = true
	h.logger.Debug("module initialized",
		ports.String("module", m.Name()),
		ports.Stringer("state", m.State()),
	)
}

// initDone reports configuration faults in bulk once every module had its
// turn. Any fault fails the whole session.
func (h *Host) initDone() {
	h.recorder.ConfigFaults(h.faults.Count())
	h.dirty = true

	if err := h.faults.Err(); err != nil {
		h.initErr = err
		for _, f := range h.faults.List() {
			h.logger.Error("configuration fault", ports.Err(f))
		}
		_ = h.lifecycle.TransitionTo(PhaseFaulted, "configuration faults")
		return
	}

	for _, m := range h.reg.Modules() {
		h.notifier.RegisterModule(m.Name(), m.State(), m.Properties())
	}
	h.notifier.ModulesLoaded()
	_ = h.lifecycle.TransitionTo(PhaseRunning, "modules loaded")
}

// RequestCheck queues a state check of every module. The checks run in
// parallel, after any serial work queued before them. It returns false
// when a check is already pending or the host is not loading or running.
func (h *Host) RequestCheck() bool {
	switch h.lifecycle.Phase() {
	case PhaseInitializing, PhaseRunning:
	default:
		return false
	}
	if h.checkPending {
		return false
	}
	h.checkPending = true
	h.sched.AddSerial(scheduler.Once("check barrier", h.fanOutChecks))
	return true
}

func (h *Host) fanOutChecks() {
	h.checkPending = false
	if h.lifecycle.Phase() != PhaseRunning {
		return
	}
	for _, m := range h.reg.Modules() {
		m := m
		h.sched.AddParallel(scheduler.Once("check "+m.Name(), func() { h.checkModule(m) }))
	}
}

func (h *Host) checkModule(m *domain.Module) {
	before := m.State()
	result := m.CheckState(h.now())
	h.recorder.CheckResult(m.Name(), result)

	if result == domain.CheckNoOp {
		return
	}
	h.logger.Info("module checked",
		ports.String("module", m.Name()),
		ports.Stringer("result", result),
		ports.Stringer("state", m.State()),
	)
	h.notifier.CheckOutput(m.Name(), checkText(result, m))
	h.stateChanged(m, before)
	h.dirty = true
}

// stateChanged notifies observers when m left state before.
func (h *Host) stateChanged(m *domain.Module, before domain.ModuleState) {
	if m.State() == before {
		return
	}
	h.notifier.ModuleState(m.Name(), m.State())
	h.recorder.ModuleState(m.Name(), m.State())
}

// Tick advances the scheduler when a tick was requested, then persists the
// status if anything changed.
func (h *Host) Tick() {
	if h.wake {
		h.wake = false
		h.sched.Tick()
		h.recorder.Tick(h.sched.Pending())
	}
	h.persist()
}

// Run drives the host until ctx is canceled: ticks on the configured
// interval and executes requests from Do in between.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Tick()
		case req := <-h.requests:
			req.fn()
			close(req.done)
		}
	}
}

// Do runs fn on the host thread and waits for it. It must not be called
// from the host thread itself.
func (h *Host) Do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case h.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current status of every module.
func (h *Host) Snapshot() ports.Status {
	st := ports.Status{
		Session:   h.session,
		Phase:     h.lifecycle.Phase().String(),
		UpdatedAt: h.now(),
		Modules:   make([]ports.ModuleStatus, 0, h.reg.Len()),
	}
	for _, m := range h.reg.Modules() {
		st.Modules = append(st.Modules, moduleStatus(m))
	}
	return st
}

func moduleStatus(m *domain.Module) ports.ModuleStatus {
	return ports.ModuleStatus{
		Name:        m.Name(),
		State:       m.State(),
		StateName:   m.State().String(),
		DelayTarget: m.DelayTarget(),
		Properties:  m.Properties(),
	}
}

func (h *Host) persist() {
	if !h.dirty || h.status == nil {
		return
	}
	now := h.now()
	if !h.saveBackoff.Ready(now) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusSaveTimeout)
	defer cancel()
	if err := h.status.Save(ctx, h.Snapshot()); err != nil {
		wait := h.saveBackoff.Fail(now)
		h.logger.Warn("failed to save status",
			ports.Err(err),
			ports.Duration("retry_in", wait),
		)
		return
	}
	h.saveBackoff.Reset()
	h.dirty = false
}

// nopNotifier discards notifications when no observer is configured.
type nopNotifier struct{}

func (nopNotifier) Reset()                                                           {}
func (nopNotifier) RegisterModule(string, domain.ModuleState, []domain.PropertyView) {}
func (nopNotifier) ModulesLoaded()                                                   {}
func (nopNotifier) ModuleState(string, domain.ModuleState)                           {}
func (nopNotifier) PropertyState(string, string, bool)                               {}
func (nopNotifier) CommandOutput(string, string, string, bool)                       {}
func (nopNotifier) CheckOutput(string, string)                                       {}
