// Habridge exposes virtual device entities (climate controllers, numeric
// inputs, switches, sensors, binary sensors, buttons) to Home Assistant via
// MQTT discovery, and mirrors their state into a namespaced SQLite state
// store. Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	habridge serve             Run the bridge
//	habridge state list        Print the stored entity state
//	habridge state clear       Delete the configured namespace's state
//	habridge version           Print version and build information
//	habridge -config x.yaml serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/catsltd/habridge/internal/buildinfo"
	"github.com/catsltd/habridge/internal/config"
	"github.com/catsltd/habridge/internal/entity"
	"github.com/catsltd/habridge/internal/mqtt"
	"github.com/catsltd/habridge/internal/statestore"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the habridge command. All OS-level
// dependencies are injected as parameters: ctx controls the process
// lifetime (cancelling it triggers graceful shutdown), stdout/stderr
// receive program output, and args is os.Args[1:]. Arguments are parsed by
// hand; the flag package relies on package-level globals, which interferes
// with parallel tests, and the argument surface here is tiny.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var rest []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		case !strings.HasPrefix(args[i], "-"):
			rest = append(rest, args[i])
		default:
			return fmt.Errorf("unknown argument %q (try -help)", args[i])
		}
	}

	switch command {
	case "version":
		return printVersion(stdout)
	case "state":
		return stateCommand(stdout, configPath, rest)
	case "", "serve":
		return serve(ctx, stdout, configPath)
	default:
		return fmt.Errorf("unknown command %q (try -help)", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, `Usage: habridge [-config path] <command>

Commands:
  serve          Run the bridge (default)
  state list     Print the stored entity state
  state clear    Delete all stored entity state for the configured namespace
  version        Print version and build information`)
	return nil
}

func printVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-11s %s\n", k, info[k])
	}
	return nil
}

// stateCommand inspects or resets the persisted entity state. Clearing the
// namespace makes entities fall back to their defaults on the next serve.
func stateCommand(stdout io.Writer, configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: habridge state <list|clear>")
	}

	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	store, err := statestore.NewStore(cfg.State.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "list":
		entries, err := store.List(cfg.State.Namespace)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(stdout, "%s = %s\n", k, entries[k])
		}
		return nil
	case "clear":
		if err := store.DeleteNamespace(cfg.State.Namespace); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cleared namespace %s\n", cfg.State.Namespace)
		return nil
	default:
		return fmt.Errorf("usage: habridge state <list|clear>")
	}
}

// serve runs the bridge until ctx is cancelled or SIGINT/SIGTERM arrives.
func serve(ctx context.Context, stdout io.Writer, configPath string) error {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	logger.Info("starting", "version", buildinfo.Version, "config", path)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	deviceID := cfg.Device.ID
	if deviceID == "" {
		deviceID, err = statestore.LoadOrCreateDeviceID(cfg.DataDir)
		if err != nil {
			return err
		}
	}

	store, err := statestore.NewStore(cfg.State.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	ns := statestore.NewNamespace(store, cfg.State.Namespace, logger)

	mqttCfg := cfg.MQTT
	if mqttCfg.ClientID == "" {
		mqttCfg.ClientID = "habridge-" + deviceID
	}
	if mqttCfg.AvailabilityTopic == "" {
		mqttCfg.AvailabilityTopic = "habridge/" + deviceID + "/availability"
	}
	client := mqtt.NewClient(mqttCfg, logger)

	deps := entity.Deps{Broker: client, Store: ns, Logger: logger}
	entities := buildEntities(deps, cfg.Entities, cfg.Device.EntityPrefix, logger)
	dev := entity.NewDevice(deviceID, cfg.Device.Name, cfg.Device.Model, entities...)
	logger.Info("device assembled",
		"device_id", deviceID, "name", cfg.Device.Name, "entities", len(entities))

	// Discovery configs and retained state are (re)published on every
	// broker (re-)connect.
	client.OnConnect(func(ctx context.Context) {
		if err := dev.Configure(ctx); err != nil {
			logger.Error("device configure failed", "error", err)
		}
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", "uptime", buildinfo.Uptime())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("mqtt disconnect failed", "error", err)
	}
	return nil
}
