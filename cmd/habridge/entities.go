package main

import (
	"log/slog"

	"github.com/catsltd/habridge/internal/config"
	"github.com/catsltd/habridge/internal/entity"
)

// buildEntities constructs every configured entity and wires its change
// hooks to info-level logging, so command-driven state changes are visible
// in the bridge's own log as well as on the MQTT bus.
func buildEntities(deps entity.Deps, cfg config.EntitiesConfig, prefix string, logger *slog.Logger) []entity.Entity {
	var entities []entity.Entity

	logChange := func(id, what string) func() {
		return func() {
			logger.Info("entity state changed", "entity", id, "change", what)
		}
	}

	for _, c := range cfg.Climates {
		cl := entity.NewClimate(deps, entity.ClimateOptions{
			Prefix:             prefix,
			Code:               c.Code,
			Name:               c.Name,
			HasPresets:         *c.HasPresets,
			HeatOnly:           c.HeatOnly,
			DefaultTemperature: *c.DefaultTemperature,
		})
		cl.OnModeChanged.Subscribe(logChange(cl.FullEntityID(), "mode"))
		cl.OnPresetChanged.Subscribe(logChange(cl.FullEntityID(), "preset"))
		cl.OnTemperatureChanged.Subscribe(logChange(cl.FullEntityID(), "temperature"))
		entities = append(entities, cl)
	}

	for _, c := range cfg.Numbers {
		n := entity.NewNumber(deps, entity.NumberOptions{
			Prefix:  prefix,
			Code:    c.Code,
			Name:    c.Name,
			Default: c.Default,
			Min:     c.Min,
			Max:     *c.Max,
			Step:    *c.Step,
			Mode:    c.Mode,
		})
		n.OnStateChanged.Subscribe(logChange(n.FullEntityID(), "value"))
		entities = append(entities, n)
	}

	for _, c := range cfg.Switches {
		s := entity.NewSwitch(deps, entity.SwitchOptions{
			Prefix:  prefix,
			Code:    c.Code,
			Name:    c.Name,
			Default: c.Default,
		})
		s.OnStateChanged.Subscribe(logChange(s.FullEntityID(), "state"))
		entities = append(entities, s)
	}

	for _, c := range cfg.Sensors {
		entities = append(entities, entity.NewSensor(deps, entity.SensorOptions{
			Prefix:     prefix,
			Code:       c.Code,
			Name:       c.Name,
			Default:    c.Default,
			StateClass: c.StateClass,
		}))
	}

	for _, c := range cfg.BinarySensors {
		entities = append(entities, entity.NewBinarySensor(deps, entity.BinarySensorOptions{
			Prefix:  prefix,
			Code:    c.Code,
			Name:    c.Name,
			Default: c.Default,
		}))
	}

	for _, c := range cfg.Buttons {
		b := entity.NewButton(deps, entity.ButtonOptions{
			Prefix: prefix,
			Code:   c.Code,
			Name:   c.Name,
		})
		b.OnPress.Subscribe(logChange(b.FullEntityID(), "pressed"))
		entities = append(entities, b)
	}

	return entities
}
