package shipctl

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/bft-labs/shipctl/internal/app"
)

// Config configures a Shipctl instance.
type Config struct {
	// ModulesFile is the TOML or YAML file module definitions are read
	// from. Required.
	ModulesFile string

	// ShipName identifies the ship in MQTT topics and event sources.
	// Default: "ship"
	ShipName string

	// TickInterval is how often the scheduler runs when work is pending.
	// Default: 100ms
	TickInterval time.Duration

	// ForceState enables periodic checks that reconcile drifted devices.
	ForceState bool

	// CheckInterval is the period of checks when ForceState is on.
	// Default: 10s
	CheckInterval time.Duration

	// StatusDir is where status.json is written. Default: the directory of
	// ModulesFile.
	StatusDir string

	// HTTPAddr enables the HTTP API when not empty.
	HTTPAddr string

	MQTT MQTTConfig
}

// MQTTConfig configures the MQTT bridge. It is disabled when Broker is empty.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if c.ShipName == "" {
		c.ShipName = "ship"
	}
	if c.TickInterval <= 0 {
		c.TickInterval = app.DefaultTickInterval
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = app.DefaultCheckInterval
	}
	if c.StatusDir == "" && c.ModulesFile != "" {
		c.StatusDir = filepath.Dir(c.ModulesFile)
	}
	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "shipctl-" + c.ShipName
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.ModulesFile == "" {
		return ErrNoModulesFile
	}
	if c.MQTT.QoS > 2 {
		return errors.New("shipctl: mqtt qos must be 0, 1 or 2")
	}
	return nil
}
