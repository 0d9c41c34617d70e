package ports

import "github.com/bft-labs/shipctl/internal/domain"

// Recorder receives controller measurements. internal/metrics provides a
// Prometheus implementation; NoopRecorder discards everything.
type Recorder interface {
	// Tick records one scheduler tick with the queue depths left after it.
	Tick(serial, parallel int)

	// ModuleState records the current state of a module.
	ModuleState(module string, state domain.ModuleState)

	// CommandResult records the outcome of a command.
	CommandResult(op string, code domain.Result)

	// CheckResult records the outcome of a periodic check.
	CheckResult(module string, result domain.CheckResult)

	// ConfigFaults records the number of faults found by the last init.
	ConfigFaults(n int)

	// NotificationDropped records a notification a sink could not keep.
	NotificationDropped(sink string)
}

// NoopRecorder implements Recorder by discarding everything.
type NoopRecorder struct{}

func (NoopRecorder) Tick(int, int)                          {}
func (NoopRecorder) ModuleState(string, domain.ModuleState) {}
func (NoopRecorder) CommandResult(string, domain.Result)    {}
func (NoopRecorder) CheckResult(string, domain.CheckResult) {}
func (NoopRecorder) ConfigFaults(int)                       {}
func (NoopRecorder) NotificationDropped(string)             {}
