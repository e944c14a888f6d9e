// Package config loads the reflector's YAML configuration file. Grounded on
// the teacher's Config struct in config.go: one nested struct per concern,
// yaml tags throughout, loaded with gopkg.in/yaml.v3. The original C++
// reflector reads an INI file; spec.md treats configuration loading as an
// external collaborator consumed by the loop, so only the concrete format
// changes here, not the CLI contract (spec.md §6: a positional argument
// overrides the default config path).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no positional argument overrides it.
const DefaultPath = "/etc/ysfreflector/ysfreflector.yaml"

// Config is the reflector's full configuration.
type Config struct {
	Reflector ReflectorConfig `yaml:"reflector"`
	Network   NetworkConfig   `yaml:"network"`
	Logging   LoggingConfig   `yaml:"logging"`
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Status    StatusConfig    `yaml:"status"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	GeoIP     GeoIPConfig     `yaml:"geoip"`
}

// ReflectorConfig identifies this reflector instance.
type ReflectorConfig struct {
	Callsign    string `yaml:"callsign"`    // this reflector's own 10-char callsign
	Name        string `yaml:"name"`        // human-readable name
	Description string `yaml:"description"` // free text; not shown in status or logs
	Debug       bool   `yaml:"debug"`       // enable verbose per-packet tracing
}

// NetworkConfig controls the UDP listener.
type NetworkConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig controls where log output goes.
type LoggingConfig struct {
	File string `yaml:"file"` // empty means stdout
}

// BlocklistConfig controls the callsign blocklist.
type BlocklistConfig struct {
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// StatusConfig controls the optional websocket dashboard.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTConfig controls the optional MQTT event publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// GeoIPConfig controls optional country enrichment of roster dumps.
type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Error wraps a configuration load/validate failure. Fatal at startup per
// spec.md §7.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads and validates the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Network: NetworkConfig{Port: 42000},
		Blocklist: BlocklistConfig{
			ReloadInterval: 5 * time.Minute,
		},
		Metrics: MetricsConfig{Listen: ":9201"},
		Status:  StatusConfig{Listen: ":9202"},
		MQTT:    MQTTConfig{TopicPrefix: "ysfreflector"},
	}
}

func (c *Config) validate() error {
	if c.Reflector.Callsign == "" {
		return fmt.Errorf("reflector.callsign must be set")
	}
	if len(c.Reflector.Callsign) > 10 {
		return fmt.Errorf("reflector.callsign must be at most 10 characters")
	}
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return fmt.Errorf("network.port must be between 1 and 65535, got %d", c.Network.Port)
	}
	if c.Blocklist.Path != "" && c.Blocklist.ReloadInterval <= 0 {
		return fmt.Errorf("blocklist.reload_interval must be positive when blocklist.path is set")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must be set when mqtt.enabled is true")
	}
	return nil
}
