package entity

import (
	"context"
	"encoding/json"
	"fmt"
)

// manufacturer appears in every entity's HA device registry block.
const manufacturer = "Cats Ltd."

// DeviceInfo is the HA device registry block embedded in every discovery
// config payload. All entities of one Device share the same block so HA
// groups them under a single device page.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// Device is a named grouping of entities. An entity belongs to exactly one
// Device; Configure publishes every entity's discovery config, subscribes
// its command topics, and republishes retained state. It is called once at
// startup and again on every broker reconnect.
type Device struct {
	id       string
	name     string
	model    string
	entities []Entity
}

// NewDevice creates a device owning the given entities, configured in the
// order given.
func NewDevice(id, name, model string, entities ...Entity) *Device {
	return &Device{id: id, name: name, model: model, entities: entities}
}

// ID returns the stable HA device identifier.
func (d *Device) ID() string {
	return d.id
}

// Entities returns the device's entities in configuration order.
func (d *Device) Entities() []Entity {
	return d.entities
}

// Info returns the device registry block for discovery payloads.
func (d *Device) Info() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{d.id},
		Name:         d.name,
		Manufacturer: manufacturer,
		Model:        d.model,
	}
}

// Configure runs every entity's configure phase. The first failure aborts
// and propagates; entities already configured stay configured.
func (d *Device) Configure(ctx context.Context) error {
	for _, e := range d.entities {
		if err := e.Configure(ctx, d); err != nil {
			return fmt.Errorf("configure %s.%s: %w", e.EntityType(), e.EntityID(), err)
		}
	}
	return nil
}

// marshalDiscovery serializes a variant's discovery config struct and
// applies caller-supplied overrides last, override winning on key collision.
// The merge is a deliberate marshal→map→merge→marshal round trip so the
// typed struct stays the single source of the computed defaults.
func marshalDiscovery(cfg any, overrides map[string]any) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal discovery config: %w", err)
	}
	if len(overrides) == 0 {
		return data, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("merge discovery overrides: %w", err)
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return json.Marshal(merged)
}
