package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Property is one independently toggleable sub-component of a module
// (an engine, an antenna). It is created once at module initialization and
// only mutated through the sequence-validated property path.
type Property struct {
	Name          string
	DefaultState  bool
	StartupDelay  time.Duration
	ShutdownDelay time.Duration
	State         bool
}

// AtDefault reports whether the property is back at its configured default.
func (p *Property) AtDefault() bool {
	return p.State == p.DefaultState
}

// delayFor returns the delay that follows setting the property to state.
func (p *Property) delayFor(state bool) time.Duration {
	if state {
		return p.StartupDelay
	}
	return p.ShutdownDelay
}

// PropertyView is a read-only snapshot of a property.
type PropertyView struct {
	Name  string `json:"name"`
	State bool   `json:"state"`
}

// Action is one step of a startup or shutdown sequence: Property must reach
// NeededState at this position. Actions are immutable once parsed.
type Action struct {
	Property    string
	NeededState bool
}

// ParseState parses a state token. "set" and "on" mean true, "reset" and
// "off" mean false.
func ParseState(s string) (bool, bool) {
	switch s {
	case "set", "on":
		return true, true
	case "reset", "off":
		return false, true
	default:
		return false, false
	}
}

// ParseProperty parses a property line of the form
//
//	name defaultState startupDelaySeconds shutdownDelaySeconds
//
// Delays are seconds and may be fractional.
func ParseProperty(line string) (*Property, bool) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return nil, false
	}
	def, ok := ParseState(fields[1])
	if !ok {
		return nil, false
	}
	up, ok := parseSeconds(fields[2])
	if !ok {
		return nil, false
	}
	down, ok := parseSeconds(fields[3])
	if !ok {
		return nil, false
	}
	return &Property{
		Name:          fields[0],
		DefaultState:  def,
		StartupDelay:  up,
		ShutdownDelay: down,
		State:         def,
	}, true
}

// ParseAction parses an action line of the form "set|reset propertyName".
// Tokens after the property name are ignored.
func ParseAction(line string) (Action, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Action{}, false
	}
	state, ok := ParseState(fields[0])
	if !ok {
		return Action{}, false
	}
	return Action{Property: fields[1], NeededState: state}, true
}

// maxSeconds is the largest number of seconds a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Seconds converts a number of seconds to a duration. Negative, non-finite
// and out-of-range values are rejected.
func Seconds(v float64) (time.Duration, bool) {
	if math.IsNaN(v) || v < 0 || v >= maxSeconds {
		return 0, false
	}
	return time.Duration(v * float64(time.Second)), true
}

func parseSeconds(s string) (time.Duration, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return Seconds(v)
}

// splitLines splits a multi-line configuration value into trimmed,
// non-empty lines.
func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(raw), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
