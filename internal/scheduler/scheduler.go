package scheduler

import (
	"io"
	"slices"

	"github.com/bft-labs/shipctl/internal/ports"
)

// Waker is told when the scheduler wants another tick.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

// Wake implements Waker.
func (f WakerFunc) Wake() { f() }

// Scheduler runs tasks cooperatively, one step at a time.
type Scheduler struct {
	serial   []Task
	parallel []Task
	waker    Waker
	logger   ports.Logger
}

// New creates a scheduler. waker may be nil when the owner ticks
// unconditionally.
func New(waker Waker, logger ports.Logger) *Scheduler {
	return &Scheduler{waker: waker, logger: logger}
}

// AddSerial appends a task to the serial queue. nil is ignored.
func (s *Scheduler) AddSerial(t Task) {
	if t == nil {
		return
	}
	s.serial = append(s.serial, t)
	s.wake()
}

// AddParallel adds a task to the parallel set. nil is ignored.
func (s *Scheduler) AddParallel(t Task) {
	if t == nil {
		return
	}
	s.parallel = append(s.parallel, t)
	s.wake()
}

// Tick advances the head of the serial queue by one step, then every task
// of the parallel set by one step. Finished tasks are removed and released.
// Parallel tasks added during the tick by a serial task take their first
// step in the same tick; those added by a parallel task wait for the next.
func (s *Scheduler) Tick() {
	if len(s.serial) > 0 {
		head := s.serial[0]
		// The head may have been removed or reset from within Step.
		if !head.Step() && len(s.serial) > 0 && s.serial[0] == head {
			s.serial[0] = nil
			s.serial = s.serial[1:]
			s.release(head, "completed")
		}
	}

	if len(s.parallel) > 0 {
		// The set stays live while stepping so Remove and Reset from within
		// Step see every member.
		snapshot := slices.Clone(s.parallel)
		for _, t := range snapshot {
			if !slices.Contains(s.parallel, t) {
				continue
			}
			if t.Step() {
				continue
			}
			if i := slices.Index(s.parallel, t); i >= 0 {
				s.parallel = slices.Delete(s.parallel, i, i+1)
				s.release(t, "completed")
			}
		}
	}

	if s.hasWork() {
		s.wake()
	}
}

// Remove cancels a queued task. It returns false when the task is not queued.
func (s *Scheduler) Remove(t Task) bool {
	for i, q := range s.serial {
		if q == t {
			s.serial = slices.Delete(s.serial, i, i+1)
			s.release(t, "removed")
			return true
		}
	}
	for i, q := range s.parallel {
		if q == t {
			s.parallel = slices.Delete(s.parallel, i, i+1)
			s.release(t, "removed")
			return true
		}
	}
	return false
}

// Reset cancels every queued task.
func (s *Scheduler) Reset() {
	serial, parallel := s.serial, s.parallel
	s.serial, s.parallel = nil, nil
	for _, t := range serial {
		s.release(t, "reset")
	}
	for _, t := range parallel {
		s.release(t, "reset")
	}
}

// Pending returns the number of serial and parallel tasks left.
func (s *Scheduler) Pending() (serial, parallel int) {
	return len(s.serial), len(s.parallel)
}

func (s *Scheduler) hasWork() bool {
	return len(s.serial) > 0 || len(s.parallel) > 0
}

func (s *Scheduler) wake() {
	if s.waker != nil {
		s.waker.Wake()
	}
}

// release closes tasks holding resources.
func (s *Scheduler) release(t Task, reason string) {
	c, ok := t.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		s.logger.Warn("failed to release task",
			ports.String("task", t.Name()),
			ports.String("reason", reason),
			ports.Err(err),
		)
	}
}
