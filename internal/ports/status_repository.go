package ports

import (
	"context"
	"time"

	"github.com/bft-labs/shipctl/internal/domain"
)

// ModuleStatus is the persisted view of one module.
type ModuleStatus struct {
	Name        string                `json:"name"`
	State       domain.ModuleState    `json:"state"`
	StateName   string                `json:"state_name"`
	DelayTarget time.Time             `json:"delay_target,omitempty"`
	Properties  []domain.PropertyView `json:"properties"`
}

// Status is the persisted view of the whole controller.
type Status struct {
	Session   string         `json:"session"`
	Phase     string         `json:"phase"`
	UpdatedAt time.Time      `json:"updated_at"`
	Modules   []ModuleStatus `json:"modules"`
}

// StatusRepository handles status persistence for external observers.
// Implementations persist the snapshot atomically.
type StatusRepository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if none exists.
	Load(ctx context.Context) (Status, error)

	// Save persists the current status atomically.
	Save(ctx context.Context, status Status) error
}
