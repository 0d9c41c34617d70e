package domain

// Device is the capability a module needs from the hardware it controls:
// read and write the aggregate "enabled" bit.
type Device interface {
	// Enabled returns the observed enabled flag.
	Enabled() bool

	// SetEnabled commands the device (or every device of a group).
	SetEnabled(enabled bool)
}

// Agreer is implemented by devices that aggregate several members and can
// tell whether all of them match a commanded value. A single disagreeing
// member means the device needs reconciliation.
type Agreer interface {
	Agrees(enabled bool) bool
}

// deviceAgrees reports whether dev already matches the commanded value.
func deviceAgrees(dev Device, enabled bool) bool {
	if a, ok := dev.(Agreer); ok {
		return a.Agrees(enabled)
	}
	return dev.Enabled() == enabled
}
