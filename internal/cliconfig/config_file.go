package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ModulesFile     string `toml:"modules_file"`
	ShipName        string `toml:"ship_name"`
	TickInterval    string `toml:"tick_interval"`
	CheckInterval   string `toml:"check_interval"`
	ForceState      *bool  `toml:"force_state"`
	Debug           *bool  `toml:"debug"`
	LogLevel        string `toml:"log_level"`
	HTTPAddr        string `toml:"http_addr"`
	StatusDir       string `toml:"status_dir"`
	MQTTBroker      string `toml:"mqtt_broker"`
	MQTTClientID    string `toml:"mqtt_client_id"`
	MQTTTopicPrefix string `toml:"mqtt_topic_prefix"`
	MQTTUsername    string `toml:"mqtt_username"`
	MQTTPassword    string `toml:"mqtt_password"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.shipctl/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".shipctl", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("modules-file", fc.ModulesFile, &cfg.ModulesFile)
	s.setString("ship-name", fc.ShipName, &cfg.ShipName)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("http-addr", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("status-dir", fc.StatusDir, &cfg.StatusDir)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("mqtt-topic-prefix", fc.MQTTTopicPrefix, &cfg.MQTTTopicPrefix)
	s.setString("mqtt-username", fc.MQTTUsername, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTTPassword, &cfg.MQTTPassword)

	if err := s.setDuration("tick-interval", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("check-interval", fc.CheckInterval, &cfg.CheckInterval); err != nil {
		return err
	}

	s.setBool("force-state", fc.ForceState, &cfg.ForceState)
	s.setBool("debug", fc.Debug, &cfg.Debug)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
