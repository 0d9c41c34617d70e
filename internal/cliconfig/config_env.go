package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SHIPCTL_"

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (SHIPCTL_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("modules-file", env("MODULES_FILE"), &cfg.ModulesFile)
	s.setString("ship-name", env("SHIP_NAME"), &cfg.ShipName)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("http-addr", env("HTTP_ADDR"), &cfg.HTTPAddr)
	s.setString("status-dir", env("STATUS_DIR"), &cfg.StatusDir)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-topic-prefix", env("MQTT_TOPIC_PREFIX"), &cfg.MQTTTopicPrefix)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)

	if err := s.setDuration("tick-interval", env("TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("check-interval", env("CHECK_INTERVAL"), &cfg.CheckInterval); err != nil {
		return err
	}

	if err := s.setBoolFromString("force-state", env("FORCE_STATE"), &cfg.ForceState); err != nil {
		return err
	}
	if err := s.setBoolFromString("debug", env("DEBUG"), &cfg.Debug); err != nil {
		return err
	}

	return nil
}
