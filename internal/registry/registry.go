// Package registry loads the modules file and owns the resulting modules.
//
// A modules file holds one section per module (TOML tables or YAML
// mappings). Every section declares:
//
//	Properties      one "name state startupDelay shutdownDelay" per line
//	Startup         one "set|reset property" per line
//	Shutdown        one "set|reset property" per line
//	Default State   on/off (or a boolean)
//	Cooldown Delay  seconds (or a duration string)
//	Devices         optional device names; the module name when absent
package registry

import (
	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// DeviceOpener resolves the device a module controls.
type DeviceOpener func(module string, devices []string) ports.Device

// Registry holds the modules of a session in declaration order.
type Registry struct {
	modules []*domain.Module
	byName  map[string]*domain.Module
}

// New builds uninitialized modules from definitions. A later definition with
// an already used name is ignored.
func New(defs []Definition, open DeviceOpener) *Registry {
	r := &Registry{byName: make(map[string]*domain.Module, len(defs))}
	for _, def := range defs {
		if _, dup := r.byName[def.Name]; dup {
			continue
		}
		m := domain.NewModule(def.Name, def.Config, open(def.Name, def.Devices))
		r.modules = append(r.modules, m)
		r.byName[def.Name] = m
	}
	return r
}

// Modules returns the modules in declaration order.
func (r *Registry) Modules() []*domain.Module {
	return r.modules
}

// Lookup returns the named module.
func (r *Registry) Lookup(name string) (*domain.Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	return len(r.modules)
}

// Names returns module names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name()
	}
	return names
}
