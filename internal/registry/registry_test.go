package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/shipctl/internal/device"
	"github.com/bft-labs/shipctl/internal/domain"
)

const shipTOML = `
[Reactor]
Properties = """
breaker off 1 1
coolant off 2 2
"""
Startup = """
set breaker
set coolant
"""
Shutdown = ["reset coolant", "reset breaker"]
"Default State" = "off"
"Cooldown Delay" = 5

["Main Engines"]
Properties = "throttle off 0.5 0.5"
Startup = "set throttle"
Shutdown = "reset throttle"
"Default State" = true
"Cooldown Delay" = "1500ms"
Devices = ["Thruster A", "Thruster B"]

[Antenna]
Properties = "dish off 0 0"
Startup = "set dish"
Shutdown = "reset dish"
"Default State" = "on"
"Cooldown Delay" = 0.25
Devices = "Long Range Antenna"
`

const shipYAML = `
Reactor:
  Properties: |
    breaker off 1 1
    coolant off 2 2
  Startup: |
    set breaker
    set coolant
  Shutdown:
    - reset coolant
    - reset breaker
  Default State: off
  Cooldown Delay: 5
Antenna:
  Properties: dish off 0 0
  Startup: set dish
  Shutdown: reset dish
  Default State: true
  Cooldown Delay: 0
`

func TestParse_TOML(t *testing.T) {
	doc, err := Parse([]byte(shipTOML), FormatTOML)
	require.NoError(t, err)

	var faults domain.Faults
	defs := doc.Definitions(&faults)
	require.NoError(t, faults.Err())
	require.Len(t, defs, 3)

	assert.Equal(t, "Reactor", defs[0].Name)
	assert.Equal(t, "Main Engines", defs[1].Name)
	assert.Equal(t, "Antenna", defs[2].Name)

	assert.Equal(t, "breaker off 1 1\ncoolant off 2 2", defs[0].Config.Properties)
	assert.Equal(t, "reset coolant\nreset breaker", defs[0].Config.Shutdown)
	assert.False(t, defs[0].Config.DefaultState)
	assert.Equal(t, 5*time.Second, defs[0].Config.Cooldown)
	assert.Empty(t, defs[0].Devices)

	assert.True(t, defs[1].Config.DefaultState)
	assert.Equal(t, 1500*time.Millisecond, defs[1].Config.Cooldown)
	assert.Equal(t, []string{"Thruster A", "Thruster B"}, defs[1].Devices)

	assert.Equal(t, 250*time.Millisecond, defs[2].Config.Cooldown)
	assert.Equal(t, []string{"Long Range Antenna"}, defs[2].Devices)
}

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(shipYAML), FormatYAML)
	require.NoError(t, err)

	var faults domain.Faults
	defs := doc.Definitions(&faults)
	require.NoError(t, faults.Err())
	require.Len(t, defs, 2)

	assert.Equal(t, "Reactor", defs[0].Name)
	assert.Equal(t, "Antenna", defs[1].Name)
	assert.False(t, defs[0].Config.DefaultState)
	assert.True(t, defs[1].Config.DefaultState)
	assert.Equal(t, "set breaker\nset coolant", defs[0].Config.Startup)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("[Reactor\nProperties = 1"), FormatTOML)
	assert.ErrorIs(t, err, domain.ErrConfigParse)

	_, err = Parse([]byte("- a\n- b\n"), FormatYAML)
	assert.ErrorIs(t, err, domain.ErrConfigParse)
}

func TestDefinitions_Faults(t *testing.T) {
	const broken = `
[Broken]
Properties = 42
Startup = "set a"
"Default State" = "maybe"
"Cooldown Delay" = -1
`
	doc, err := Parse([]byte(broken), FormatTOML)
	require.NoError(t, err)

	var faults domain.Faults
	defs := doc.Definitions(&faults)
	require.Len(t, defs, 1, "a faulty section still yields a definition")

	var kinds []error
	var keys []string
	for _, f := range faults.List() {
		kinds = append(kinds, f.Kind)
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []error{
		domain.ErrMissingKey,
		domain.ErrInvalidValue,
		domain.ErrInvalidValue,
		domain.ErrInvalidValue,
	}, kinds)
	assert.Equal(t, []string{domain.KeyShutdown, domain.KeyProperties, domain.KeyDefaultState, domain.KeyCooldown}, keys)
}

func TestDefinitions_CooldownOutOfRange(t *testing.T) {
	for _, cooldown := range []string{"1e12", "inf", "nan", `"-5s"`, `"2562048h"`} {
		t.Run(cooldown, func(t *testing.T) {
			data := `
[Drive]
Properties = """
core off 1e20 1
field off 1 1
"""
Startup = "set field"
Shutdown = "reset field"
"Default State" = "off"
"Cooldown Delay" = ` + cooldown + "\n"
			doc, err := Parse([]byte(data), FormatTOML)
			require.NoError(t, err)

			var faults domain.Faults
			defs := doc.Definitions(&faults)
			require.Len(t, defs, 1)
			assert.Zero(t, defs[0].Config.Cooldown)

			list := faults.List()
			require.Len(t, list, 1)
			assert.ErrorIs(t, list[0].Kind, domain.ErrInvalidValue)
			assert.Equal(t, domain.KeyCooldown, list[0].Key)

			m := domain.NewModule(defs[0].Name, defs[0].Config, nil)
			m.Init(&faults)
			require.Equal(t, 2, faults.Count())
			assert.ErrorIs(t, faults.List()[1].Kind, domain.ErrPropertyParse)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("ship.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("SHIP.YML"))
	assert.Equal(t, FormatTOML, FormatFromPath("ship.toml"))
	assert.Equal(t, FormatTOML, FormatFromPath("modules"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modules.toml")
	require.NoError(t, os.WriteFile(path, []byte(shipTOML), 0o644))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 3)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	doc, err := Parse([]byte(shipTOML), FormatTOML)
	require.NoError(t, err)
	var faults domain.Faults
	defs := doc.Definitions(&faults)

	bank := device.NewBank()
	reg := New(append(defs, Definition{Name: "Reactor"}), bank.Open)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"Reactor", "Main Engines", "Antenna"}, reg.Names())

	m, ok := reg.Lookup("Main Engines")
	require.True(t, ok)
	m.Init(&faults)
	require.NoError(t, faults.Err())
	assert.True(t, bank.Block("Thruster A").Enabled())
	assert.True(t, bank.Block("Thruster B").Enabled())

	_, ok = reg.Lookup("Hyperdrive")
	assert.False(t, ok)
}

func TestSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ship.yml")
	require.NoError(t, os.WriteFile(path, []byte(shipYAML), 0o644))

	var faults domain.Faults
	defs, err := FileSource(path).Definitions(&faults)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	defs, err = BytesSource{Data: []byte(shipTOML)}.Definitions(&faults)
	require.NoError(t, err)
	assert.Len(t, defs, 3)
	assert.NoError(t, faults.Err())

	_, err = BytesSource{Data: []byte("[[["), Format: FormatTOML}.Definitions(&faults)
	assert.ErrorIs(t, err, domain.ErrConfigParse)
}
