package shipctl

import (
	"github.com/bft-labs/shipctl/internal/device"
	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/registry"
)

// ValidateModules loads a modules file and initializes every module
// against a scratch device bank, the way a session would. It returns the
// module names in declaration order and the joined configuration faults,
// or nil when the file is clean.
func ValidateModules(path string) ([]string, error) {
	var faults domain.Faults

	defs, err := registry.FileSource(path).Definitions(&faults)
	if err != nil {
		faults.Add(domain.ErrConfigParse, "", "", err.Error())
	}
	reg := registry.New(defs, device.NewBank().Open)
	for _, m := range reg.Modules() {
		m.Init(&faults)
	}
	return reg.Names(), faults.Err()
}
