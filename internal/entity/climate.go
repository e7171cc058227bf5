package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/coerce"
	"github.com/catsltd/habridge/internal/events"
)

// Climate presets offered when presets are enabled.
var climatePresets = []string{"home", "away", "sleep"}

// Climate is a virtual thermostat. Mode is the entity's primary state;
// preset and target temperature are stored as attributes on the same key.
// The current (measured) temperature is process-local only: it is pushed by
// external code via SetCurrentTemperature and never persisted.
type Climate struct {
	base

	hasPresets  bool
	heatOnly    bool
	defaultTemp float64
	currentTemp float64

	OnModeChanged        events.Hook
	OnPresetChanged      events.Hook
	OnTemperatureChanged events.Hook
}

// ClimateOptions configures a Climate entity.
type ClimateOptions struct {
	Prefix string
	Code   string
	Name   string
	// HasPresets enables the home/away/sleep preset topics and fields.
	HasPresets bool
	// HeatOnly restricts the mode list to ["heat"] and removes the mode
	// command topic entirely (the thermostat can never be switched off
	// through HA).
	HeatOnly bool
	// DefaultTemperature is the target temperature reported before any has
	// been stored.
	DefaultTemperature float64
	// Overrides are merged into the discovery config last, winning on
	// collision.
	Overrides map[string]any
}

// NewClimate creates a climate entity.
func NewClimate(deps Deps, opts ClimateOptions) *Climate {
	return &Climate{
		base:        newBase(deps, "climate", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
		hasPresets:  opts.HasPresets,
		heatOnly:    opts.HeatOnly,
		defaultTemp: opts.DefaultTemperature,
	}
}

// --- Topics ---

func (c *Climate) modeCommandTopic() string   { return c.topic("mode", "set") }
func (c *Climate) modeStateTopic() string     { return c.topic("mode", "state") }
func (c *Climate) presetCommandTopic() string { return c.topic("preset_mode", "set") }
func (c *Climate) presetStateTopic() string   { return c.topic("preset_mode", "state") }
func (c *Climate) tempCommandTopic() string   { return c.topic("temperature", "set") }
func (c *Climate) tempStateTopic() string     { return c.topic("temperature", "state") }
func (c *Climate) currentTempTopic() string   { return c.topic("current_temperature", "state") }

// --- State accessors ---

// Mode returns the stored HVAC mode. Defaults to "off", or "heat" for a
// heat-only thermostat.
func (c *Climate) Mode() (string, error) {
	def := "off"
	if c.heatOnly {
		def = "heat"
	}
	mode, ok, err := c.store.Get(c.FullEntityID(), "")
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return mode, nil
}

// SetMode persists and republishes the HVAC mode. Unchanged values are a
// no-op.
func (c *Climate) SetMode(ctx context.Context, mode string) (changed bool, err error) {
	return c.syncState(ctx, "", mode, c.modeStateTopic())
}

// Preset returns the stored preset, defaulting to "home".
func (c *Climate) Preset() (string, error) {
	preset, ok, err := c.store.Get(c.FullEntityID(), "preset")
	if err != nil {
		return "", err
	}
	if !ok {
		return "home", nil
	}
	return preset, nil
}

// SetPreset persists and republishes the preset. Unchanged values are a
// no-op.
func (c *Climate) SetPreset(ctx context.Context, preset string) (changed bool, err error) {
	return c.syncState(ctx, "preset", preset, c.presetStateTopic())
}

// TargetTemperature returns the stored target temperature, defaulting to
// the configured default.
func (c *Climate) TargetTemperature() (float64, error) {
	return c.store.GetFloat(c.FullEntityID(), "temperature", c.defaultTemp)
}

// SetTargetTemperature persists and republishes the target temperature.
// Unchanged values are a no-op.
func (c *Climate) SetTargetTemperature(ctx context.Context, value float64) (changed bool, err error) {
	return c.syncState(ctx, "temperature", coerce.FormatFloat(value), c.tempStateTopic())
}

// CurrentTemperature returns the last measured temperature pushed by
// external code. Zero until the first push.
func (c *Climate) CurrentTemperature() float64 {
	return c.currentTemp
}

// SetCurrentTemperature publishes a new measured temperature, retained.
// The value is process-local and intentionally not persisted; unchanged
// values skip the publish.
func (c *Climate) SetCurrentTemperature(ctx context.Context, value float64) error {
	if c.currentTemp == value {
		return nil
	}
	c.currentTemp = value
	return c.broker.Publish(ctx, c.currentTempTopic(), []byte(coerce.FormatFloat(value)), true)
}

// --- Discovery ---

type climateDiscovery struct {
	ModeStateTopic          string     `json:"mode_state_topic"`
	ModeCommandTopic        string     `json:"mode_command_topic,omitempty"`
	TemperatureCommandTopic string     `json:"temperature_command_topic"`
	TemperatureStateTopic   string     `json:"temperature_state_topic"`
	CurrentTemperatureTopic string     `json:"current_temperature_topic"`
	PresetModeCommandTopic  string     `json:"preset_mode_command_topic,omitempty"`
	PresetModeStateTopic    string     `json:"preset_mode_state_topic,omitempty"`
	PresetModes             []string   `json:"preset_modes,omitempty"`
	Precision               float64    `json:"precision"`
	TempStep                float64    `json:"temp_step"`
	UniqueID                string     `json:"unique_id"`
	ObjectID                string     `json:"object_id"`
	Name                    string     `json:"name"`
	Modes                   []string   `json:"modes"`
	Device                  DeviceInfo `json:"device"`
}

// Configure publishes the discovery config, subscribes the command topics
// the mode flags allow, and republishes the current retained state.
func (c *Climate) Configure(ctx context.Context, dev *Device) error {
	cfg := climateDiscovery{
		ModeStateTopic:          c.modeStateTopic(),
		TemperatureCommandTopic: c.tempCommandTopic(),
		TemperatureStateTopic:   c.tempStateTopic(),
		CurrentTemperatureTopic: c.currentTempTopic(),
		Precision:               0.1,
		TempStep:                0.5,
		UniqueID:                c.entityID,
		ObjectID:                c.entityID,
		Name:                    c.name,
		Modes:                   []string{"off", "heat"},
		Device:                  dev.Info(),
	}
	if c.heatOnly {
		cfg.Modes = []string{"heat"}
	} else {
		cfg.ModeCommandTopic = c.modeCommandTopic()
	}
	if c.hasPresets {
		cfg.PresetModeCommandTopic = c.presetCommandTopic()
		cfg.PresetModeStateTopic = c.presetStateTopic()
		cfg.PresetModes = climatePresets
	}

	payload, err := marshalDiscovery(cfg, c.overrides)
	if err != nil {
		return err
	}

	c.logger.Info("configuring climate entity", "entity", c.entityID)
	if err := c.broker.Publish(ctx, c.configTopic(), payload, true); err != nil {
		return err
	}

	if !c.heatOnly {
		if err := c.broker.Subscribe(ctx, c.modeCommandTopic(), c.handleMode); err != nil {
			return err
		}
	}
	if c.hasPresets {
		if err := c.broker.Subscribe(ctx, c.presetCommandTopic(), c.handlePreset); err != nil {
			return err
		}
	}
	if err := c.broker.Subscribe(ctx, c.tempCommandTopic(), c.handleTemperature); err != nil {
		return err
	}

	// Republish retained state so new broker subscribers see it.
	mode, err := c.Mode()
	if err != nil {
		return err
	}
	if err := c.broker.Publish(ctx, c.modeStateTopic(), []byte(mode), true); err != nil {
		return err
	}
	if c.hasPresets {
		preset, err := c.Preset()
		if err != nil {
			return err
		}
		if err := c.broker.Publish(ctx, c.presetStateTopic(), []byte(preset), true); err != nil {
			return err
		}
	}
	temp, err := c.TargetTemperature()
	if err != nil {
		return err
	}
	if err := c.broker.Publish(ctx, c.tempStateTopic(), []byte(coerce.FormatFloat(temp)), true); err != nil {
		return err
	}
	return c.broker.Publish(ctx, c.currentTempTopic(), []byte(coerce.FormatFloat(c.currentTemp)), true)
}

// --- Command handlers ---

func (c *Climate) handleMode(ctx context.Context, _ string, payload []byte) error {
	mode, ok := c.stringPayload(payload)
	if !ok {
		return nil
	}
	changed, err := c.SetMode(ctx, mode)
	if err != nil {
		return err
	}
	if changed {
		c.OnModeChanged.Fire()
	}
	return nil
}

func (c *Climate) handlePreset(ctx context.Context, _ string, payload []byte) error {
	preset, ok := c.stringPayload(payload)
	if !ok {
		return nil
	}
	changed, err := c.SetPreset(ctx, preset)
	if err != nil {
		return err
	}
	if changed {
		c.OnPresetChanged.Fire()
	}
	return nil
}

func (c *Climate) handleTemperature(ctx context.Context, _ string, payload []byte) error {
	value, ok := c.floatPayload(payload)
	if !ok {
		return nil
	}
	changed, err := c.SetTargetTemperature(ctx, value)
	if err != nil {
		return err
	}
	if changed {
		c.OnTemperatureChanged.Fire()
	}
	return nil
}
