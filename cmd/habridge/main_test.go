package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catsltd/habridge/internal/config"
	"github.com/catsltd/habridge/internal/entity"
	"github.com/catsltd/habridge/internal/statestore"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, io.Discard, []string{"version"}); err != nil {
		t.Fatalf("run(version) error: %v", err)
	}
	if !strings.Contains(out.String(), "habridge") {
		t.Errorf("version output = %q, want habridge banner", out.String())
	}
}

func TestRun_VersionPrintsBuildDetails(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, io.Discard, []string{"version"}); err != nil {
		t.Fatalf("run(version) error: %v", err)
	}
	for _, field := range []string{"go_version", "os", "arch", "uptime"} {
		if !strings.Contains(out.String(), field) {
			t.Errorf("version output missing %q:\n%s", field, out.String())
		}
	}
}

// writeTestConfig writes a minimal valid config into a temp dir and returns
// its path plus the db path it implies.
func writeTestConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
mqtt:
  broker: mqtt://localhost:1883
device:
  name: Test Bridge
state:
  namespace: heating
data_dir: %s
`, dir)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, filepath.Join(dir, "habridge.db")
}

func TestRun_StateListAndClear(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	store, err := statestore.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	ns := statestore.NewNamespace(store, "heating", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := ns.Set("climate.living", "", "heat"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := ns.Set("climate.living", "temperature", "21.5"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	store.Close()

	var out bytes.Buffer
	if err := run(context.Background(), &out, io.Discard, []string{"-config", configPath, "state", "list"}); err != nil {
		t.Fatalf("run(state list) error: %v", err)
	}
	for _, line := range []string{"climate.living = heat", "climate.living.temperature = 21.5"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("state list output missing %q:\n%s", line, out.String())
		}
	}

	out.Reset()
	if err := run(context.Background(), &out, io.Discard, []string{"-config", configPath, "state", "clear"}); err != nil {
		t.Fatalf("run(state clear) error: %v", err)
	}
	if !strings.Contains(out.String(), "cleared namespace heating") {
		t.Errorf("state clear output = %q", out.String())
	}

	out.Reset()
	if err := run(context.Background(), &out, io.Discard, []string{"-config", configPath, "state", "list"}); err != nil {
		t.Fatalf("run(state list) after clear error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "" {
		t.Errorf("state list after clear = %q, want empty", out.String())
	}
}

func TestRun_StateWithoutSubcommandFails(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	err := run(context.Background(), io.Discard, io.Discard, []string{"-config", configPath, "state"})
	if err == nil || !strings.Contains(err.Error(), "state <list|clear>") {
		t.Errorf("run(state) error = %v, want usage error", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), io.Discard, io.Discard, []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("run(bogus) error = %v, want unknown command", err)
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, io.Discard, []string{"-help"}); err != nil {
		t.Fatalf("run(-help) error: %v", err)
	}
	if !strings.Contains(out.String(), "serve") {
		t.Errorf("help output = %q, want command list", out.String())
	}
}

func TestBuildEntities(t *testing.T) {
	yes := true
	temp := 23.5
	hundred := 100.0
	tenth := 0.1

	cfg := config.EntitiesConfig{
		Climates: []config.ClimateConfig{
			{Code: "living", Name: "Living Room", HasPresets: &yes, DefaultTemperature: &temp},
		},
		Numbers: []config.NumberConfig{
			{Code: "offset", Name: "Offset", Max: &hundred, Step: &tenth, Mode: "box"},
		},
		Switches:      []config.SwitchConfig{{Code: "pump", Name: "Pump"}},
		Sensors:       []config.SensorConfig{{Code: "temp", Name: "Temp", StateClass: "measurement"}},
		BinarySensors: []config.BinarySensorConfig{{Code: "flame", Name: "Flame"}},
		Buttons:       []config.ButtonConfig{{Code: "resync", Name: "Resync"}},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	entities := buildEntities(entity.Deps{Logger: logger}, cfg, "heating", logger)

	if len(entities) != 6 {
		t.Fatalf("built %d entities, want 6", len(entities))
	}

	want := map[string]string{
		"climate":       "heating_living",
		"number":        "heating_offset",
		"switch":        "heating_pump",
		"sensor":        "heating_temp",
		"binary_sensor": "heating_flame",
		"button":        "heating_resync",
	}
	for _, e := range entities {
		wantID, ok := want[e.EntityType()]
		if !ok {
			t.Errorf("unexpected entity type %q", e.EntityType())
			continue
		}
		if e.EntityID() != wantID {
			t.Errorf("%s entity id = %q, want %q", e.EntityType(), e.EntityID(), wantID)
		}
	}
}
