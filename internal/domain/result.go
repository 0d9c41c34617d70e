package domain

// Result is the outcome code of a module command.
// Negative values are rejections; the meaning of a positive code depends on
// the operation that produced it.
type Result int

const (
	// ResultWrongValue: right property, wrong target value. Module enters Error.
	ResultWrongValue Result = -5
	// ResultWrongProperty: the property is not the next step. Module enters Error.
	ResultWrongProperty Result = -4
	// ResultNotFound: unknown property name (property operations).
	ResultNotFound Result = -3
	// ResultNoOp: the requested state is already the current one (SetState).
	ResultNoOp Result = -3
	// ResultWrongState: the module state does not permit the operation.
	ResultWrongState Result = -2
	// ResultNotYet: the delay target has not elapsed.
	ResultNotYet Result = -1
	// ResultFailed: TryFixError could not restore the module.
	ResultFailed Result = 0
	// ResultOK: the operation was applied. For SetState it means startup began.
	ResultOK Result = 1
	// ResultShutdown: SetState began the shutdown sequence.
	ResultShutdown Result = 2
)

// Rejected reports whether the result is a rejection or a fault.
func (r Result) Rejected() bool {
	return r < 0
}

// Fault reports whether the result moved the module into Error.
func (r Result) Fault() bool {
	return r == ResultWrongProperty || r == ResultWrongValue
}

// CheckResult is the outcome of a periodic state check.
type CheckResult int

const (
	CheckNoOp     CheckResult = 0
	CheckForced   CheckResult = 1
	CheckEnabled  CheckResult = 2
	CheckDisabled CheckResult = 3
)

// String returns a human-readable representation of the check result.
func (c CheckResult) String() string {
	switch c {
	case CheckNoOp:
		return "no-op"
	case CheckForced:
		return "state forced"
	case CheckEnabled:
		return "module enabled"
	case CheckDisabled:
		return "module disabled"
	default:
		return "unknown"
	}
}
