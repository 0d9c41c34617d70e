package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bft-labs/shipctl/internal/domain"
	shiplog "github.com/bft-labs/shipctl/pkg/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid json %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNotifier_Levels(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(shiplog.NewZerologAdapterWithLogger(zerolog.New(&buf)))

	n.ModuleState("Reactor", domain.StateComingUp)
	n.CommandOutput("Reactor", "ui-1", "not ready, retry in 1s", true)
	n.CommandOutput("Reactor", "ui-1", "breaker is on", false)

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0]["state"] != "Starting Up" {
		t.Errorf("state = %v, want Starting Up", entries[0]["state"])
	}
	if entries[1]["level"] != "warn" || entries[2]["level"] != "info" {
		t.Errorf("levels = %v/%v, want warn/info", entries[1]["level"], entries[2]["level"])
	}
	if entries[1]["requester"] != "ui-1" {
		t.Errorf("requester = %v", entries[1]["requester"])
	}
}

type countNotifier struct{ calls int }

func (c *countNotifier) Reset()                                                           { c.calls++ }
func (c *countNotifier) RegisterModule(string, domain.ModuleState, []domain.PropertyView) { c.calls++ }
func (c *countNotifier) ModulesLoaded()                                                   { c.calls++ }
func (c *countNotifier) ModuleState(string, domain.ModuleState)                           { c.calls++ }
func (c *countNotifier) PropertyState(string, string, bool)                               { c.calls++ }
func (c *countNotifier) CommandOutput(string, string, string, bool)                       { c.calls++ }
func (c *countNotifier) CheckOutput(string, string)                                       { c.calls++ }

func TestMulti(t *testing.T) {
	a, b := &countNotifier{}, &countNotifier{}
	m := Multi{a, b}

	m.Reset()
	m.RegisterModule("Reactor", domain.StateDisabled, nil)
	m.ModulesLoaded()
	m.ModuleState("Reactor", domain.StateEnabled)
	m.PropertyState("Reactor", "breaker", true)
	m.CommandOutput("Reactor", "ui", "ok", false)
	m.CheckOutput("Reactor", "no-op")

	if a.calls != 7 || b.calls != 7 {
		t.Errorf("calls = %d/%d, want 7/7", a.calls, b.calls)
	}
}
