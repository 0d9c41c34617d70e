package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/shipctl/internal/domain"
)

// Definition is a validated module section, ready to build a module from.
type Definition struct {
	Name    string
	Config  domain.ModuleConfig
	Devices []string
}

// Definitions converts every section into a module definition. Problems are
// recorded on faults; a section with faults still yields a definition so
// that every module gets a chance to report its own problems.
func (d *Document) Definitions(faults *domain.Faults) []Definition {
	defs := make([]Definition, 0, len(d.Sections))
	for _, s := range d.Sections {
		defs = append(defs, s.definition(faults))
	}
	return defs
}

func (s Section) definition(faults *domain.Faults) Definition {
	def := Definition{Name: s.Name}

	for _, key := range domain.RequiredKeys {
		if _, ok := s.Values[key]; !ok {
			faults.Add(domain.ErrMissingKey, s.Name, key, "")
		}
	}

	def.Config.Properties = s.text(domain.KeyProperties, faults)
	def.Config.Startup = s.text(domain.KeyStartup, faults)
	def.Config.Shutdown = s.text(domain.KeyShutdown, faults)

	if v, ok := s.Values[domain.KeyDefaultState]; ok {
		state, ok := toState(v)
		if !ok {
			faults.Add(domain.ErrInvalidValue, s.Name, domain.KeyDefaultState, fmt.Sprint(v))
		}
		def.Config.DefaultState = state
	}

	if v, ok := s.Values[domain.KeyCooldown]; ok {
		cooldown, ok := toSeconds(v)
		if !ok {
			faults.Add(domain.ErrInvalidValue, s.Name, domain.KeyCooldown, fmt.Sprint(v))
		}
		def.Config.Cooldown = cooldown
	}

	if v, ok := s.Values[domain.KeyDevices]; ok {
		names, ok := toLines(v)
		if !ok {
			faults.Add(domain.ErrInvalidValue, s.Name, domain.KeyDevices, fmt.Sprint(v))
		}
		def.Devices = names
	}

	return def
}

// text returns a multi-line value. Lists of strings are joined line by line.
func (s Section) text(key string, faults *domain.Faults) string {
	v, ok := s.Values[key]
	if !ok {
		return ""
	}
	lines, ok := toLines(v)
	if !ok {
		faults.Add(domain.ErrInvalidValue, s.Name, key, fmt.Sprint(v))
		return ""
	}
	return strings.Join(lines, "\n")
}

func toLines(v any) ([]string, bool) {
	switch t := v.(type) {
	case string:
		var out []string
		for _, l := range strings.Split(t, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, strings.TrimSpace(str))
		}
		return out, true
	default:
		return nil, false
	}
}

func toState(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return domain.ParseState(strings.ToLower(strings.TrimSpace(t)))
	default:
		return false, false
	}
}

func toSeconds(v any) (time.Duration, bool) {
	var f float64
	switch t := v.(type) {
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float64:
		f = t
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		f = d.Seconds()
	default:
		return 0, false
	}
	return domain.Seconds(f)
}
