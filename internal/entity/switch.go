package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/coerce"
	"github.com/catsltd/habridge/internal/events"
)

// Switch is a boolean toggle. On the wire, state topic and store alike,
// the value is the literal string "ON" or "OFF", never a JSON boolean.
type Switch struct {
	base

	defaultValue bool

	OnStateChanged events.Hook
}

// SwitchOptions configures a Switch entity.
type SwitchOptions struct {
	Prefix    string
	Code      string
	Name      string
	Default   bool
	Overrides map[string]any
}

// NewSwitch creates a switch entity.
func NewSwitch(deps Deps, opts SwitchOptions) *Switch {
	return &Switch{
		base:         newBase(deps, "switch", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
		defaultValue: opts.Default,
	}
}

func (s *Switch) commandTopic() string { return s.topic("set") }
func (s *Switch) stateTopic() string   { return s.topic() }

// State returns the stored state, defaulting to the configured default.
func (s *Switch) State() (bool, error) {
	return s.store.GetBool(s.FullEntityID(), "", s.defaultValue)
}

// SetState persists and republishes the state. Unchanged values are a
// no-op.
func (s *Switch) SetState(ctx context.Context, value bool) (changed bool, err error) {
	return s.syncState(ctx, "", coerce.FormatBool(value), s.stateTopic())
}

type switchDiscovery struct {
	Platform     string     `json:"platform"`
	CommandTopic string     `json:"command_topic"`
	StateTopic   string     `json:"state_topic"`
	UniqueID     string     `json:"unique_id"`
	ObjectID     string     `json:"object_id"`
	Name         string     `json:"name"`
	Device       DeviceInfo `json:"device"`
}

// Configure publishes the discovery config, subscribes the command topic,
// and republishes the current retained state.
func (s *Switch) Configure(ctx context.Context, dev *Device) error {
	cfg := switchDiscovery{
		Platform:     "switch",
		CommandTopic: s.commandTopic(),
		StateTopic:   s.stateTopic(),
		UniqueID:     s.entityID,
		ObjectID:     s.entityID,
		Name:         s.name,
		Device:       dev.Info(),
	}

	payload, err := marshalDiscovery(cfg, s.overrides)
	if err != nil {
		return err
	}

	s.logger.Info("configuring switch entity", "entity", s.entityID)
	if err := s.broker.Publish(ctx, s.configTopic(), payload, true); err != nil {
		return err
	}
	if err := s.broker.Subscribe(ctx, s.commandTopic(), s.handleCommand); err != nil {
		return err
	}

	state, err := s.State()
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, s.stateTopic(), []byte(coerce.FormatBool(state)), true)
}

func (s *Switch) handleCommand(ctx context.Context, _ string, payload []byte) error {
	value, ok := s.boolPayload(payload)
	if !ok {
		return nil
	}
	changed, err := s.SetState(ctx, value)
	if err != nil {
		return err
	}
	if changed {
		s.OnStateChanged.Fire()
	}
	return nil
}
