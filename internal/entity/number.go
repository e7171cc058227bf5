package entity

import (
	"context"

	"github.com/catsltd/habridge/internal/coerce"
	"github.com/catsltd/habridge/internal/events"
)

// Number is a bounded numeric input.
type Number struct {
	base

	defaultValue float64
	min          float64
	max          float64
	step         float64
	mode         string

	OnStateChanged events.Hook
}

// NumberOptions configures a Number entity.
type NumberOptions struct {
	Prefix  string
	Code    string
	Name    string
	Default float64
	Min     float64
	Max     float64
	Step    float64
	// Mode is the HA input widget, "box" or "slider".
	Mode      string
	Overrides map[string]any
}

// NewNumber creates a numeric input entity.
func NewNumber(deps Deps, opts NumberOptions) *Number {
	return &Number{
		base:         newBase(deps, "number", opts.Prefix, opts.Code, opts.Name, opts.Overrides),
		defaultValue: opts.Default,
		min:          opts.Min,
		max:          opts.Max,
		step:         opts.Step,
		mode:         opts.Mode,
	}
}

func (n *Number) commandTopic() string { return n.topic("set") }
func (n *Number) stateTopic() string   { return n.topic() }

// Value returns the stored value, defaulting to the configured default.
func (n *Number) Value() (float64, error) {
	return n.store.GetFloat(n.FullEntityID(), "", n.defaultValue)
}

// SetValue persists and republishes the value. Unchanged values are a
// no-op.
func (n *Number) SetValue(ctx context.Context, value float64) (changed bool, err error) {
	return n.syncState(ctx, "", coerce.FormatFloat(value), n.stateTopic())
}

type numberDiscovery struct {
	Platform     string     `json:"platform"`
	CommandTopic string     `json:"command_topic"`
	StateTopic   string     `json:"state_topic"`
	Min          float64    `json:"min"`
	Max          float64    `json:"max"`
	Step         float64    `json:"step"`
	Mode         string     `json:"mode"`
	UniqueID     string     `json:"unique_id"`
	ObjectID     string     `json:"object_id"`
	Name         string     `json:"name"`
	Device       DeviceInfo `json:"device"`
}

// Configure publishes the discovery config, subscribes the command topic,
// and republishes the current retained state.
func (n *Number) Configure(ctx context.Context, dev *Device) error {
	cfg := numberDiscovery{
		Platform:     "number",
		CommandTopic: n.commandTopic(),
		StateTopic:   n.stateTopic(),
		Min:          n.min,
		Max:          n.max,
		Step:         n.step,
		Mode:         n.mode,
		UniqueID:     n.entityID,
		ObjectID:     n.entityID,
		Name:         n.name,
		Device:       dev.Info(),
	}

	payload, err := marshalDiscovery(cfg, n.overrides)
	if err != nil {
		return err
	}

	n.logger.Info("configuring number entity", "entity", n.entityID)
	if err := n.broker.Publish(ctx, n.configTopic(), payload, true); err != nil {
		return err
	}
	if err := n.broker.Subscribe(ctx, n.commandTopic(), n.handleCommand); err != nil {
		return err
	}

	value, err := n.Value()
	if err != nil {
		return err
	}
	return n.broker.Publish(ctx, n.stateTopic(), []byte(coerce.FormatFloat(value)), true)
}

func (n *Number) handleCommand(ctx context.Context, _ string, payload []byte) error {
	value, ok := n.floatPayload(payload)
	if !ok {
		return nil
	}
	changed, err := n.SetValue(ctx, value)
	if err != nil {
		return err
	}
	if changed {
		n.OnStateChanged.Fire()
	}
	return nil
}
