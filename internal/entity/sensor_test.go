package entity

import (
	"context"
	"testing"
)

func TestSensorConfigure_ReadOnly(t *testing.T) {
	broker := newFakeBroker()
	store := newFakeStore()
	s := NewSensor(testDeps(broker, store), SensorOptions{
		Code: "boiler_temp", Name: "Boiler Temperature", StateClass: "measurement",
	})

	if err := s.Configure(context.Background(), testDevice()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	if len(broker.subs) != 0 {
		t.Errorf("sensor subscribed to %d topics, want 0 (read-only)", len(broker.subs))
	}

	pubs := broker.published("homeassistant/sensor/boiler_temp/config")
	if len(pubs) != 1 {
		t.Fatalf("config published %d times, want 1", len(pubs))
	}
	m := unmarshalMap(t, []byte(pubs[0].payload))
	if m["state_class"] != "measurement" {
		t.Errorf("state_class = %v, want measurement", m["state_class"])
	}
	if _, present := m["command_topic"]; present {
		t.Error("command_topic present in sensor discovery config")
	}
}

func TestSensor_SetStatePushes(t *testing.T) {
	broker := newFakeBroker()
	store := newFakeStore()
	s := NewSensor(testDeps(broker, store), SensorOptions{
		Code: "boiler_temp", Name: "Boiler Temperature", StateClass: "measurement",
	})
	if err := s.Configure(context.Background(), testDevice()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	changed, err := s.SetState(context.Background(), 64.5)
	if err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if !changed {
		t.Error("SetState() changed = false, want true")
	}

	states := broker.published("homeassistant/sensor/boiler_temp")
	// Initial default 0 from Configure plus the pushed value.
	if len(states) != 2 || states[1].payload != "64.5" || !states[1].retain {
		t.Errorf("state publishes = %v, want retained 64.5", states)
	}

	// Pushing the same reading again is a no-op.
	changed, err = s.SetState(context.Background(), 64.5)
	if err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if changed {
		t.Error("second SetState() changed = true, want false")
	}
	if store.sets != 1 {
		t.Errorf("store writes = %d, want 1", store.sets)
	}
}

func TestSensor_DefaultState(t *testing.T) {
	broker := newFakeBroker()
	s := NewSensor(testDeps(broker, newFakeStore()), SensorOptions{
		Code: "boiler_temp", Name: "Boiler Temperature", Default: 21, StateClass: "measurement",
	})
	if err := s.Configure(context.Background(), testDevice()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	pubs := broker.published("homeassistant/sensor/boiler_temp")
	if len(pubs) != 1 || pubs[0].payload != "21" {
		t.Errorf("initial state = %v, want default 21", pubs)
	}
}
