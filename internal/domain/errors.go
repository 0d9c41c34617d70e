package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent configuration error conditions in shipctl.
// Runtime conditions (timing, state, sequence) are reported as result codes,
// not errors. These errors can be checked with errors.Is.
var (
	// ErrConfigParse is returned when the modules file cannot be decoded.
	ErrConfigParse = errors.New("shipctl: config parse failed")

	// ErrMissingKey is returned when a module section lacks a required key.
	ErrMissingKey = errors.New("shipctl: missing required key")

	// ErrMissingValue is returned when a required key has an empty value.
	ErrMissingValue = errors.New("shipctl: missing value")

	// ErrInvalidValue is returned when a key holds a value of the wrong type.
	ErrInvalidValue = errors.New("shipctl: invalid value")

	// ErrPropertyParse is returned for a malformed property line.
	ErrPropertyParse = errors.New("shipctl: malformed property")

	// ErrActionParse is returned for a malformed action line.
	ErrActionParse = errors.New("shipctl: malformed action")

	// ErrPropertyMismatch is returned when an action references an undeclared property.
	ErrPropertyMismatch = errors.New("shipctl: action references undeclared property")

	// ErrInitFailed is returned when one or more modules failed to initialize.
	ErrInitFailed = errors.New("shipctl: module initialization failed")
)

// Controller lifecycle errors.
var (
	// ErrNotRunning is returned when an operation needs a running controller.
	ErrNotRunning = errors.New("shipctl: controller not running")

	// ErrAlreadyRunning is returned when Start is called on a started controller.
	ErrAlreadyRunning = errors.New("shipctl: controller already running")

	// ErrShutdownTimeout is returned when graceful shutdown exceeds its deadline.
	ErrShutdownTimeout = errors.New("shipctl: shutdown timeout exceeded")

	// ErrUnknownModule is returned when a command names no registered module.
	ErrUnknownModule = errors.New("shipctl: module not found")
)

// ConfigFault describes one configuration problem for one module.
type ConfigFault struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Module is the module (section) name, empty for file-level faults.
	Module string

	// Key is the offending configuration key, if any.
	Key string

	// Detail is the offending raw text or a decoder message.
	Detail string
}

// Error implements error.
func (f *ConfigFault) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.Error())
	if f.Module != "" {
		fmt.Fprintf(&b, ": module %s", f.Module)
	}
	if f.Key != "" {
		fmt.Fprintf(&b, " key '%s'", f.Key)
	}
	if f.Detail != "" {
		fmt.Fprintf(&b, ": %q", f.Detail)
	}
	return b.String()
}

// Unwrap lets errors.Is match the fault kind.
func (f *ConfigFault) Unwrap() error {
	return f.Kind
}

// Faults collects configuration faults so they can be reported all at once
// after every module had a chance to initialize.
// The zero value is ready to use.
type Faults struct {
	list []*ConfigFault
}

// Add records a fault.
func (f *Faults) Add(kind error, module, key, detail string) {
	f.list = append(f.list, &ConfigFault{Kind: kind, Module: module, Key: key, Detail: detail})
}

// Count returns the number of recorded faults.
func (f *Faults) Count() int {
	return len(f.list)
}

// List returns a copy of the recorded faults.
func (f *Faults) List() []*ConfigFault {
	return append([]*ConfigFault(nil), f.list...)
}

// Reset drops every recorded fault.
func (f *Faults) Reset() {
	f.list = f.list[:0]
}

// Err returns nil when no fault was recorded, otherwise an error wrapping
// ErrInitFailed and every individual fault.
func (f *Faults) Err() error {
	if len(f.list) == 0 {
		return nil
	}
	errs := make([]error, 0, len(f.list)+1)
	errs = append(errs, fmt.Errorf("%w: %d fault(s)", ErrInitFailed, len(f.list)))
	for _, fault := range f.list {
		errs = append(errs, fault)
	}
	return errors.Join(errs...)
}
