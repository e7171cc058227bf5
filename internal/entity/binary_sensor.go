package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/coerce"
)

// BinarySensor is a read-only boolean sensor using the same ON/OFF wire
// convention as Switch. State is pushed by external code through SetState.
type BinarySensor struct {
	base

	defaultValue bool
}

// BinarySensorOptions configures a BinarySensor entity.
type BinarySensorOptions struct {
	Prefix    string
	Code      string
	Name      string
	Default   bool
	Overrides map[string]any
}

// NewBinarySensor creates a binary sensor entity.
func NewBinarySensor(deps Deps, opts BinarySensorOptions) *BinarySensor {
	return &BinarySensor{
		base:         newBase(deps, "binary_sensor", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
		defaultValue: opts.Default,
	}
}

func (s *BinarySensor) stateTopic() string { return s.topic() }

// State returns the stored state, defaulting to the configured default.
func (s *BinarySensor) State() (bool, error) {
	return s.store.GetBool(s.FullEntityID(), "", s.defaultValue)
}

// SetState persists and republishes the state. Unchanged values are a
// no-op.
func (s *BinarySensor) SetState(ctx context.Context, value bool) (changed bool, err error) {
	return s.syncState(ctx, "", coerce.FormatBool(value), s.stateTopic())
}

type binarySensorDiscovery struct {
	Platform   string     `json:"platform"`
	StateTopic string     `json:"state_topic"`
	UniqueID   string     `json:"unique_id"`
	ObjectID   string     `json:"object_id"`
	Name       string     `json:"name"`
	Device     DeviceInfo `json:"device"`
}

// Configure publishes the discovery config and the current retained state.
func (s *BinarySensor) Configure(ctx context.Context, dev *Device) error {
	cfg := binarySensorDiscovery{
		Platform:   "binary_sensor",
		StateTopic: s.stateTopic(),
		UniqueID:   s.entityID,
		ObjectID:   s.entityID,
		Name:       s.name,
		Device:     dev.Info(),
	}

	payload, err := marshalDiscovery(cfg, s.overrides)
	if err != nil {
		return err
	}

	s.logger.Info("configuring binary_sensor entity", "entity", s.entityID)
	if err := s.broker.Publish(ctx, s.configTopic(), payload, true); err != nil {
		return err
	}

	state, err := s.State()
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, s.stateTopic(), []byte(coerce.FormatBool(state)), true)
}
