// Package config handles habridge configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/habridge/config.yaml, /etc/habridge/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "habridge", "config.yaml"))
	}

	paths = append(paths, "/etc/habridge/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all habridge configuration.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	State    StateConfig    `yaml:"state"`
	Device   DeviceConfig   `yaml:"device"`
	Entities EntitiesConfig `yaml:"entities"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// MQTTConfig defines the broker connection.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. mqtt://10.0.0.5:1883 or
	// mqtts://broker.example.com:8883.
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// ClientID defaults to "habridge-" + device id.
	ClientID string `yaml:"client_id"`
	// AvailabilityTopic carries the retained online/offline birth and will
	// messages. Defaults to "habridge/<device_id>/availability".
	AvailabilityTopic string `yaml:"availability_topic"`
}

// Configured reports whether the minimum broker settings are present.
func (c MQTTConfig) Configured() bool {
	return c.Broker != ""
}

// StateConfig defines the entity state database.
type StateConfig struct {
	// DBPath defaults to <data_dir>/habridge.db.
	DBPath string `yaml:"db_path"`
	// Namespace partitions this bridge's entities within the database.
	Namespace string `yaml:"namespace"`
}

// DeviceConfig defines the HA device block shared by all entities.
type DeviceConfig struct {
	// ID is the stable HA device identifier. If empty, a UUID is generated
	// and persisted under data_dir.
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
	// EntityPrefix is prepended (with an underscore) to every entity code
	// to form the entity id. Optional.
	EntityPrefix string `yaml:"entity_prefix"`
}

// EntitiesConfig lists the virtual entities the bridge exposes.
type EntitiesConfig struct {
	Climates      []ClimateConfig      `yaml:"climates"`
	Numbers       []NumberConfig       `yaml:"numbers"`
	Switches      []SwitchConfig       `yaml:"switches"`
	Sensors       []SensorConfig       `yaml:"sensors"`
	BinarySensors []BinarySensorConfig `yaml:"binary_sensors"`
	Buttons       []ButtonConfig       `yaml:"buttons"`
}

// ClimateConfig defines one climate entity. Pointer fields distinguish
// "omitted" from an explicit zero value so defaults can be applied.
type ClimateConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	// HasPresets defaults to true.
	HasPresets *bool `yaml:"has_presets"`
	HeatOnly   bool  `yaml:"heat_only"`
	// DefaultTemperature defaults to 23.5.
	DefaultTemperature *float64 `yaml:"default_temperature"`
}

// NumberConfig defines one numeric input entity.
type NumberConfig struct {
	Code    string  `yaml:"code"`
	Name    string  `yaml:"name"`
	Default float64 `yaml:"default"`
	Min     float64 `yaml:"min"`
	// Max defaults to 100.
	Max *float64 `yaml:"max"`
	// Step defaults to 0.1.
	Step *float64 `yaml:"step"`
	// Mode is the HA input widget, "box" (default) or "slider".
	Mode string `yaml:"mode"`
}

// SwitchConfig defines one switch entity.
type SwitchConfig struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Default bool   `yaml:"default"`
}

// SensorConfig defines one read-only numeric sensor entity.
type SensorConfig struct {
	Code    string  `yaml:"code"`
	Name    string  `yaml:"name"`
	Default float64 `yaml:"default"`
	// StateClass defaults to "measurement".
	StateClass string `yaml:"state_class"`
}

// BinarySensorConfig defines one read-only binary sensor entity.
type BinarySensorConfig struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Default bool   `yaml:"default"`
}

// ButtonConfig defines one stateless button entity.
type ButtonConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Load reads configuration from a YAML file, expands environment variables,
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		DataDir:  ".",
		LogLevel: "info",
		State: StateConfig{
			Namespace: "habridge",
		},
		Device: DeviceConfig{
			Name:  "habridge",
			Model: "Virtual Device Bridge",
		},
	}
}

// applyDefaults fills derived and per-entity defaults that cannot be
// pre-populated before unmarshal (list items start from zero values).
func (c *Config) applyDefaults() {
	if c.State.DBPath == "" {
		c.State.DBPath = filepath.Join(c.DataDir, "habridge.db")
	}

	for i := range c.Entities.Climates {
		cl := &c.Entities.Climates[i]
		if cl.HasPresets == nil {
			cl.HasPresets = ptr(true)
		}
		if cl.DefaultTemperature == nil {
			cl.DefaultTemperature = ptr(23.5)
		}
	}
	for i := range c.Entities.Numbers {
		n := &c.Entities.Numbers[i]
		if n.Max == nil {
			n.Max = ptr(100.0)
		}
		if n.Step == nil {
			n.Step = ptr(0.1)
		}
		if n.Mode == "" {
			n.Mode = "box"
		}
	}
	for i := range c.Entities.Sensors {
		s := &c.Entities.Sensors[i]
		if s.StateClass == "" {
			s.StateClass = "measurement"
		}
	}
}

// Validate checks for the settings the bridge cannot run without.
func (c *Config) Validate() error {
	if !c.MQTT.Configured() {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.Device.Name == "" {
		return fmt.Errorf("device.name is required")
	}
	if c.State.Namespace == "" {
		return fmt.Errorf("state.namespace is required")
	}

	seen := make(map[string]bool)
	check := func(kind, code string) error {
		if code == "" {
			return fmt.Errorf("entities.%s: code is required", kind)
		}
		key := kind + "/" + code
		if seen[key] {
			return fmt.Errorf("entities.%s: duplicate code %q", kind, code)
		}
		seen[key] = true
		return nil
	}

	for _, e := range c.Entities.Climates {
		if err := check("climates", e.Code); err != nil {
			return err
		}
	}
	for _, e := range c.Entities.Numbers {
		if err := check("numbers", e.Code); err != nil {
			return err
		}
		if e.Min > *e.Max {
			return fmt.Errorf("entities.numbers %q: min %v > max %v", e.Code, e.Min, *e.Max)
		}
	}
	for _, e := range c.Entities.Switches {
		if err := check("switches", e.Code); err != nil {
			return err
		}
	}
	for _, e := range c.Entities.Sensors {
		if err := check("sensors", e.Code); err != nil {
			return err
		}
	}
	for _, e := range c.Entities.BinarySensors {
		if err := check("binary_sensors", e.Code); err != nil {
			return err
		}
	}
	for _, e := range c.Entities.Buttons {
		if err := check("buttons", e.Code); err != nil {
			return err
		}
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}
