package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/events"
)

// Button is a stateless trigger. It has no state topic; every message on
// its command topic fires OnPress exactly once, whatever the payload says.
type Button struct {
	base

	OnPress events.Hook
}

// ButtonOptions configures a Button entity.
type ButtonOptions struct {
	Prefix    string
	Code      string
	Name      string
	Overrides map[string]any
}

// NewButton creates a button entity.
func NewButton(deps Deps, opts ButtonOptions) *Button {
	return &Button{
		base: newBase(deps, "button", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
	}
}

func (b *Button) commandTopic() string { return b.topic("command") }

type buttonDiscovery struct {
	Platform     string     `json:"platform"`
	CommandTopic string     `json:"command_topic"`
	UniqueID     string     `json:"unique_id"`
	ObjectID     string     `json:"object_id"`
	Name         string     `json:"name"`
	Device       DeviceInfo `json:"device"`
}

// Configure publishes the discovery config and subscribes the command
// topic. Buttons publish no state.
func (b *Button) Configure(ctx context.Context, dev *Device) error {
	cfg := buttonDiscovery{
		Platform:     "button",
		CommandTopic: b.commandTopic(),
		UniqueID:     b.entityID,
		ObjectID:     b.entityID,
		Name:         b.name,
		Device:       dev.Info(),
	}

	payload, err := marshalDiscovery(cfg, b.overrides)
	if err != nil {
		return err
	}

	b.logger.Info("configuring button entity", "entity", b.entityID)
	if err := b.broker.Publish(ctx, b.configTopic(), payload, true); err != nil {
		return err
	}
	return b.broker.Subscribe(ctx, b.commandTopic(), b.handlePress)
}

func (b *Button) handlePress(context.Context, string, []byte) error {
	b.OnPress.Fire()
	return nil
}
