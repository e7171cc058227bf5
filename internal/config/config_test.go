package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_AppliesEntityDefaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: mqtt://localhost:1883
device:
  name: heating
entities:
  climates:
    - code: living_room
      name: Living Room
  numbers:
    - code: offset
      name: Offset
  sensors:
    - code: boiler_temp
      name: Boiler Temperature
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cl := cfg.Entities.Climates[0]
	if cl.HasPresets == nil || !*cl.HasPresets {
		t.Error("climate has_presets default should be true")
	}
	if cl.DefaultTemperature == nil || *cl.DefaultTemperature != 23.5 {
		t.Errorf("climate default_temperature = %v, want 23.5", cl.DefaultTemperature)
	}

	n := cfg.Entities.Numbers[0]
	if n.Max == nil || *n.Max != 100 {
		t.Errorf("number max default = %v, want 100", n.Max)
	}
	if n.Step == nil || *n.Step != 0.1 {
		t.Errorf("number step default = %v, want 0.1", n.Step)
	}
	if n.Mode != "box" {
		t.Errorf("number mode default = %q, want box", n.Mode)
	}

	if got := cfg.Entities.Sensors[0].StateClass; got != "measurement" {
		t.Errorf("sensor state_class default = %q, want measurement", got)
	}
}

func TestLoad_ExplicitValuesSurviveDefaulting(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: mqtt://localhost:1883
device:
  name: heating
entities:
  climates:
    - code: bedroom
      name: Bedroom
      has_presets: false
      heat_only: true
      default_temperature: 19
  numbers:
    - code: gain
      name: Gain
      min: -5
      max: 5
      step: 0.5
      mode: slider
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cl := cfg.Entities.Climates[0]
	if *cl.HasPresets {
		t.Error("explicit has_presets: false was overwritten")
	}
	if !cl.HeatOnly {
		t.Error("heat_only = false, want true")
	}
	if *cl.DefaultTemperature != 19 {
		t.Errorf("default_temperature = %v, want 19", *cl.DefaultTemperature)
	}

	n := cfg.Entities.Numbers[0]
	if n.Min != -5 || *n.Max != 5 || *n.Step != 0.5 || n.Mode != "slider" {
		t.Errorf("number = min %v max %v step %v mode %q, want -5 5 0.5 slider",
			n.Min, *n.Max, *n.Step, n.Mode)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("HABRIDGE_TEST_PASSWORD", "hunter2")
	path := writeConfig(t, `
mqtt:
  broker: mqtt://localhost:1883
  password: ${HABRIDGE_TEST_PASSWORD}
device:
  name: heating
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.Password != "hunter2" {
		t.Errorf("password = %q, want expanded env value", cfg.MQTT.Password)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing broker",
			yaml:    "device:\n  name: x\n",
			wantErr: "mqtt.broker",
		},
		{
			name: "duplicate code",
			yaml: `
mqtt:
  broker: mqtt://localhost:1883
device:
  name: x
entities:
  switches:
    - {code: pump, name: Pump}
    - {code: pump, name: Pump Again}
`,
			wantErr: "duplicate code",
		},
		{
			name: "number min above max",
			yaml: `
mqtt:
  broker: mqtt://localhost:1883
device:
  name: x
entities:
  numbers:
    - {code: bad, name: Bad, min: 10, max: 5}
`,
			wantErr: "min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DefaultsDBPathUnderDataDir(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: mqtt://localhost:1883
device:
  name: heating
data_dir: /var/lib/habridge
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := cfg.State.DBPath; got != filepath.Join("/var/lib/habridge", "habridge.db") {
		t.Errorf("db_path = %q, want under data_dir", got)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	if _, err := FindConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("FindConfig() error = nil for missing explicit path")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"trace", false},
		{"debug", false},
		{"", false},
		{"INFO", false},
		{"warning", false},
		{"error", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		if _, err := ParseLogLevel(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
