package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/shipctl/internal/ports"
)

const statusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file
// that dashboards and scripts can read.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (ports.Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return ports.Status{}, nil
		}
		return ports.Status{}, err
	}

	var status ports.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return ports.Status{}, err
	}

	return status, nil
}

// Save persists the current status atomically.
// Writes to a temp file in the same directory, then renames it over the
// previous snapshot so readers never see a partial file.
func (r *StatusFileRepository) Save(ctx context.Context, status ports.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, statusFileName+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), r.Path())
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
