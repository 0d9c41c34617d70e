package ports

import "github.com/bft-labs/shipctl/internal/domain"

// Device is the hardware capability a module controls.
// Implementations live in internal/device.
type Device = domain.Device
