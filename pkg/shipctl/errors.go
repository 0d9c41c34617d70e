package shipctl

import (
	"errors"

	"github.com/bft-labs/shipctl/internal/domain"
)

// Errors returned by Shipctl. Use errors.Is to check for them.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrUnknownModule   = domain.ErrUnknownModule
	ErrInitFailed      = domain.ErrInitFailed

	ErrNoModulesFile = errors.New("shipctl: modules file is required")
)
