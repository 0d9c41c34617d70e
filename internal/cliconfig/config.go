package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultModulesFile is the modules file used when none is configured.
const DefaultModulesFile = "modules.toml"

// Config holds CLI configuration for shipctl.
type Config struct {
	ModulesFile string
	ShipName    string

	TickInterval  time.Duration
	CheckInterval time.Duration
	ForceState    bool

	Debug    bool
	LogLevel string

	HTTPAddr  string
	StatusDir string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	MQTTUsername    string
	MQTTPassword    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ModulesFile:     DefaultModulesFile,
		ShipName:        "ship",
		TickInterval:    100 * time.Millisecond,
		CheckInterval:   10 * time.Second,
		ForceState:      true,
		LogLevel:        "info",
		HTTPAddr:        "127.0.0.1:8080",
		StatusDir:       "", // Derived from ModulesFile during Validate
		MQTTTopicPrefix: "shipctl",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.ModulesFile == "" {
		return fmt.Errorf("modules-file is required")
	}
	if c.ShipName == "" {
		return fmt.Errorf("ship-name is required")
	}

	if c.StatusDir == "" {
		c.StatusDir = filepath.Dir(c.ModulesFile)
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.ForceState && c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive when force-state is on")
	}

	if c.Debug {
		c.LogLevel = "debug"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	if c.MQTTBroker != "" {
		if !strings.Contains(c.MQTTBroker, "://") {
			c.MQTTBroker = "tcp://" + c.MQTTBroker
		}
		if c.MQTTClientID == "" {
			c.MQTTClientID = "shipctl-" + c.ShipName
		}
	}
	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.MQTTPassword != "" {
		c.MQTTPassword = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
