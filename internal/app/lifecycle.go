package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Phase represents the lifecycle phase of a controller session.
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseInitializing
	PhaseRunning
	PhaseStopping
	PhaseFaulted
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "Stopped"
	case PhaseInitializing:
		return "Initializing"
	case PhaseRunning:
		return "Running"
	case PhaseStopping:
		return "Stopping"
	case PhaseFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Lifecycle tracks the phase of the controller.
//
// A session starts in Initializing when modules are (re)loaded and ends in
// Running once every module initialized cleanly, or in Faulted when the
// configuration had faults. Both can start a new session.
type Lifecycle struct {
	mu           sync.RWMutex
	phase        Phase
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when the lifecycle phase changes.
type EventEmitter interface {
	OnPhaseChange(previous, current Phase, reason string)
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		phase:        PhaseStopped,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// Phase returns the current lifecycle phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// TransitionTo attempts to move to a new phase.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(next Phase, reason string) error {
	l.mu.Lock()
	prev := l.phase

	if !validTransition(prev, next) {
		l.mu.Unlock()
		if prev == PhaseStopped {
			return domain.ErrNotRunning
		}
		return fmt.Errorf("%w: cannot go from %s to %s", domain.ErrAlreadyRunning, prev, next)
	}

	l.phase = next
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnPhaseChange(prev, next, reason)
	}

	l.logger.Info("phase transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)

	return nil
}

func validTransition(from, to Phase) bool {
	switch from {
	case PhaseStopped:
		return to == PhaseInitializing
	case PhaseInitializing:
		return to == PhaseRunning || to == PhaseFaulted || to == PhaseStopping
	case PhaseRunning, PhaseFaulted:
		return to == PhaseInitializing || to == PhaseStopping
	case PhaseStopping:
		return to == PhaseStopped
	default:
		return false
	}
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase == PhaseStopped
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase != PhaseStopped && l.phase != PhaseStopping
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
