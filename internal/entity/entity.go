// Package entity implements the virtual device entities the bridge exposes
// through Home Assistant's MQTT discovery convention. Each variant (climate,
// number, switch, sensor, binary_sensor, button) publishes a retained
// discovery config JSON describing itself, subscribes to its command
// topic(s), and mirrors state between the namespaced state store and
// retained MQTT state topics.
//
// The synchronization contract is the same everywhere: decode the inbound
// command payload, skip the update when decoding fails or the value is
// unchanged, otherwise persist, republish retained, and fire the matching
// change hook. Decode failures are logged and absorbed; store and publish
// failures propagate out of the handler.
package entity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/catsltd/habridge/internal/coerce"
)

// discoveryPrefix is the fixed topic root of the HA MQTT discovery
// convention. Entity topics are pure functions of entity type and id under
// this prefix and are never recomputed after construction.
const discoveryPrefix = "homeassistant"

// Handler is called for each MQTT message received on a subscribed command
// topic. A returned error terminates that invocation only; the dispatcher
// logs it and keeps running.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Broker is the MQTT transport entities publish through. Implemented by
// [mqtt.Client]; tests substitute a fake.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
	Subscribe(ctx context.Context, topic string, h Handler) error
}

// Store is the namespaced entity state store. attribute == "" addresses the
// entity's primary state. The typed getters apply a default for missing
// values but return an error (never the default) for stored values that
// fail coercion. Implemented by [statestore.Namespace].
type Store interface {
	Get(entityID, attribute string) (value string, ok bool, err error)
	Set(entityID, attribute, value string) error
	GetFloat(entityID, attribute string, def float64) (float64, error)
	GetBool(entityID, attribute string, def bool) (bool, error)
}

// Deps bundles the external collaborators shared by every entity.
type Deps struct {
	Broker Broker
	Store  Store
	Logger *slog.Logger
}

// Entity is the capability every variant provides to its owning Device.
type Entity interface {
	EntityType() string
	EntityID() string
	Configure(ctx context.Context, dev *Device) error
}

// base carries the identity and payload-decoding helpers shared by all
// entity variants.
type base struct {
	broker Broker
	store  Store
	logger *slog.Logger

	entityType string
	entityID   string
	name       string
	overrides  map[string]any
}

func newBase(deps Deps, entityType, prefix, code, name string, overrides map[string]any) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	entityID := code
	if prefix != "" {
		entityID = prefix + "_" + code
	}
	return base{
		broker:     deps.Broker,
		store:      deps.Store,
		logger:     logger,
		entityType: entityType,
		entityID:   entityID,
		name:       name,
		overrides:  overrides,
	}
}

// EntityType returns the fixed HA component name of the variant.
func (b *base) EntityType() string {
	return b.entityType
}

// EntityID returns the entity id (prefix + code).
func (b *base) EntityID() string {
	return b.entityID
}

// FullEntityID returns "{entity_type}.{entity_id}", the key the entity's
// state is stored under.
func (b *base) FullEntityID() string {
	return b.entityType + "." + b.entityID
}

// Name returns the display name.
func (b *base) Name() string {
	return b.name
}

// topic builds "homeassistant/{type}/{id}" plus optional suffix segments.
func (b *base) topic(suffix ...string) string {
	parts := append([]string{discoveryPrefix, b.entityType, b.entityID}, suffix...)
	return strings.Join(parts, "/")
}

// configTopic is where the retained discovery config JSON is published.
func (b *base) configTopic() string {
	return b.topic("config")
}

// --- Payload decoding ---
//
// All three helpers share the failure contract: ok == false means the
// payload was missing or uncoercible, the failure has been logged, and the
// caller must not apply any state change.

func (b *base) stringPayload(payload []byte) (string, bool) {
	if len(payload) == 0 {
		b.logger.Error("empty MQTT command payload", "entity", b.FullEntityID())
		return "", false
	}
	return string(payload), true
}

func (b *base) floatPayload(payload []byte) (float64, bool) {
	s, ok := b.stringPayload(payload)
	if !ok {
		return 0, false
	}
	v, err := coerce.Float(s)
	if err != nil {
		b.logger.Error("failed to convert MQTT payload to float",
			"entity", b.FullEntityID(), "payload", s)
		return 0, false
	}
	return v, true
}

func (b *base) boolPayload(payload []byte) (bool, bool) {
	s, ok := b.stringPayload(payload)
	if !ok {
		return false, false
	}
	v, err := coerce.Bool(s)
	if err != nil {
		b.logger.Error("failed to convert MQTT payload to bool",
			"entity", b.FullEntityID(), "payload", s)
		return false, false
	}
	return v, true
}

// --- State synchronization ---

// syncState writes value to the store (primary state for attribute == "")
// and republishes it retained to stateTopic. The write and publish are
// skipped when the stored value already equals value, which makes duplicate
// command deliveries idempotent. Returns whether a change was applied.
func (b *base) syncState(ctx context.Context, attribute, value, stateTopic string) (changed bool, err error) {
	current, ok, err := b.store.Get(b.FullEntityID(), attribute)
	if err != nil {
		return false, err
	}
	if ok && current == value {
		return false, nil
	}

	if err := b.store.Set(b.FullEntityID(), attribute, value); err != nil {
		return false, err
	}
	if err := b.broker.Publish(ctx, stateTopic, []byte(value), true); err != nil {
		return false, err
	}
	return true, nil
}
