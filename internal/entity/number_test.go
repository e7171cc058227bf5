package entity

import (
	"context"
	"testing"
)

func configuredNumber(t *testing.T, opts NumberOptions) (*Number, *fakeBroker, *fakeStore) {
	t.Helper()
	broker := newFakeBroker()
	store := newFakeStore()
	n := NewNumber(testDeps(broker, store), opts)
	if err := n.Configure(context.Background(), testDevice()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	return n, broker, store
}

func TestNumberConfigure_DiscoveryFields(t *testing.T) {
	_, broker, _ := configuredNumber(t, NumberOptions{
		Code: "offset", Name: "Offset",
		Min: 0, Max: 100, Step: 0.1, Mode: "box",
	})

	pubs := broker.published("homeassistant/number/offset/config")
	if len(pubs) != 1 {
		t.Fatalf("config published %d times, want 1", len(pubs))
	}
	m := unmarshalMap(t, []byte(pubs[0].payload))

	if m["min"] != 0.0 || m["max"] != 100.0 || m["step"] != 0.1 || m["mode"] != "box" {
		t.Errorf("bounds = min %v max %v step %v mode %v, want 0 100 0.1 box",
			m["min"], m["max"], m["step"], m["mode"])
	}
	if m["command_topic"] != "homeassistant/number/offset/set" {
		t.Errorf("command_topic = %v", m["command_topic"])
	}
	if m["state_topic"] != "homeassistant/number/offset" {
		t.Errorf("state_topic = %v (state topic is bare)", m["state_topic"])
	}
	if m["unique_id"] != "offset" || m["object_id"] != "offset" {
		t.Errorf("ids = %v/%v, want offset/offset", m["unique_id"], m["object_id"])
	}

	dev, _ := m["device"].(map[string]any)
	if dev == nil || dev["manufacturer"] != "Cats Ltd." {
		t.Errorf("device block = %v", m["device"])
	}
}

func TestNumberConfigure_OverrideReplacesName(t *testing.T) {
	_, broker, _ := configuredNumber(t, NumberOptions{
		Code: "offset", Name: "Offset",
		Overrides: map[string]any{"name": "Temperature Offset"},
	})

	pubs := broker.published("homeassistant/number/offset/config")
	m := unmarshalMap(t, []byte(pubs[0].payload))
	if m["name"] != "Temperature Offset" {
		t.Errorf("name = %v, want override to replace computed default", m["name"])
	}
}

func TestNumberConfigure_PublishesDefaultState(t *testing.T) {
	_, broker, _ := configuredNumber(t, NumberOptions{
		Code: "offset", Name: "Offset", Default: 1.5,
	})

	pubs := broker.published("homeassistant/number/offset")
	if len(pubs) != 1 || pubs[0].payload != "1.5" || !pubs[0].retain {
		t.Errorf("initial state = %v, want one retained 1.5", pubs)
	}
}

func TestNumber_CommandIdempotence(t *testing.T) {
	n, broker, store := configuredNumber(t, NumberOptions{Code: "offset", Name: "Offset"})

	fired := 0
	n.OnStateChanged.Subscribe(func() { fired++ })

	for i := 0; i < 2; i++ {
		if err := broker.deliver(t, "homeassistant/number/offset/set", "3.5"); err != nil {
			t.Fatalf("deliver error: %v", err)
		}
	}

	if store.sets != 1 {
		t.Errorf("store writes = %d, want exactly 1", store.sets)
	}
	// One initial publish from Configure plus exactly one for the change.
	states := broker.published("homeassistant/number/offset")
	if len(states) != 2 || states[1].payload != "3.5" {
		t.Errorf("state publishes = %v, want initial + one 3.5", states)
	}
	if fired != 1 {
		t.Errorf("OnStateChanged fired %d times, want 1", fired)
	}
}

func TestNumber_BadPayloadIsAbsorbed(t *testing.T) {
	n, broker, store := configuredNumber(t, NumberOptions{Code: "offset", Name: "Offset"})

	fired := 0
	n.OnStateChanged.Subscribe(func() { fired++ })

	if err := broker.deliver(t, "homeassistant/number/offset/set", "abc"); err != nil {
		t.Fatalf("deliver error: %v, want decode failure absorbed", err)
	}

	if store.sets != 0 {
		t.Errorf("store writes = %d after bad payload, want 0", store.sets)
	}
	if fired != 0 {
		t.Errorf("OnStateChanged fired %d times, want 0", fired)
	}
}
