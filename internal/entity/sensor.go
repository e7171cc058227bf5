package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/coerce"
)

// Sensor is a read-only numeric sensor. It has no command topic; state is
// pushed by external code through SetState.
type Sensor struct {
	base

	defaultValue float64
	stateClass   string
}

// SensorOptions configures a Sensor entity.
type SensorOptions struct {
	Prefix  string
	Code    string
	Name    string
	Default float64
	// StateClass is the HA sensor state class, e.g. "measurement" or
	// "total_increasing".
	StateClass string
	Overrides  map[string]any
}

// NewSensor creates a sensor entity.
func NewSensor(deps Deps, opts SensorOptions) *Sensor {
	return &Sensor{
		base:         newBase(deps, "sensor", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
		defaultValue: opts.Default,
		stateClass:   opts.StateClass,
	}
}

func (s *Sensor) stateTopic() string { return s.topic() }

// State returns the stored value, defaulting to the configured default.
func (s *Sensor) State() (float64, error) {
	return s.store.GetFloat(s.FullEntityID(), "", s.defaultValue)
}

// SetState persists and republishes the value. Unchanged values are a
// no-op.
func (s *Sensor) SetState(ctx context.Context, value float64) (changed bool, err error) {
	return s.syncState(ctx, "", coerce.FormatFloat(value), s.stateTopic())
}

type sensorDiscovery struct {
	Platform   string     `json:"platform"`
	StateTopic string     `json:"state_topic"`
	UniqueID   string     `json:"unique_id"`
	ObjectID   string     `json:"object_id"`
	Name       string     `json:"name"`
	StateClass string     `json:"state_class"`
	Device     DeviceInfo `json:"device"`
}

// Configure publishes the discovery config and the current retained state.
// Sensors subscribe to nothing.
func (s *Sensor) Configure(ctx context.Context, dev *Device) error {
	cfg := sensorDiscovery{
		Platform:   "sensor",
		StateTopic: s.stateTopic(),
		UniqueID:   s.entityID,
		ObjectID:   s.entityID,
		Name:       s.name,
		StateClass: s.stateClass,
		Device:     dev.Info(),
	}

	payload, err := marshalDiscovery(cfg, s.overrides)
	if err != nil {
		return err
	}

	s.logger.Info("configuring sensor entity", "entity", s.entityID)
	if err := s.broker.Publish(ctx, s.configTopic(), payload, true); err != nil {
		return err
	}

	state, err := s.State()
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, s.stateTopic(), []byte(coerce.FormatFloat(state)), true)
}
