package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every topic when none is configured.
const DefaultTopicPrefix = "shipctl"

// Topics builds the topic names of one ship:
//
//	<prefix>/<ship>/status
//	<prefix>/<ship>/session
//	<prefix>/<ship>/modules/<module>/state
//	<prefix>/<ship>/modules/<module>/properties/<property>
//	<prefix>/<ship>/modules/<module>/check
//	<prefix>/<ship>/commands
//	<prefix>/<ship>/output/<requester>
type Topics struct {
	Prefix string
	Ship   string
}

func (t Topics) base() string {
	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if t.Ship == "" {
		return prefix
	}
	return prefix + "/" + segment(t.Ship)
}

// Status is the retained online/offline topic, also used as last will.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// Session carries session resets and module registration.
func (t Topics) Session() string {
	return t.base() + "/session"
}

// ModuleState carries the retained state of a module.
func (t Topics) ModuleState(module string) string {
	return fmt.Sprintf("%s/modules/%s/state", t.base(), segment(module))
}

// Property carries the retained value of a module property.
func (t Topics) Property(module, property string) string {
	return fmt.Sprintf("%s/modules/%s/properties/%s", t.base(), segment(module), segment(property))
}

// Check carries periodic check output of a module.
func (t Topics) Check(module string) string {
	return fmt.Sprintf("%s/modules/%s/check", t.base(), segment(module))
}

// Commands is the topic console commands are received on.
func (t Topics) Commands() string {
	return t.base() + "/commands"
}

// Output carries command replies for one requester.
func (t Topics) Output(requester string) string {
	return fmt.Sprintf("%s/output/%s", t.base(), segment(requester))
}

var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")

// segment makes a name usable as a single topic level.
func segment(name string) string {
	if name == "" {
		return "_"
	}
	return segmentReplacer.Replace(name)
}
