// Package main implements the entry point for the FlowKit runtime. It loads
// a declarative topology, registers its components with an engine, restores
// persisted state, and fires the triggers named on the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/c360/flowkit/config"
	"github.com/c360/flowkit/engine"
	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/metric"
	"github.com/c360/flowkit/storage/filestore"
	"github.com/c360/flowkit/storage/snapshot"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "flowkit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	doc, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}

	if cliCfg.Validate {
		// Build against empty bindings still exercises the state tree and
		// component checks; unbound guard or action names fail here too.
		if _, _, buildErr := config.Build(doc, config.Bindings{}); buildErr != nil {
			return fmt.Errorf("invalid topology: %w", buildErr)
		}
		slog.Info("Topology is valid", "path", cliCfg.ConfigPath)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := metric.NewRegistry()
	startMetricsServer(cliCfg.MetricsPort, metricsRegistry, logger)

	bus := eventbus.New(
		eventbus.WithLogger(logger),
		eventbus.WithMetrics(metricsRegistry),
	)
	eng := engine.New(
		engine.WithBus(bus),
		engine.WithLogger(logger),
		engine.WithMetrics(metricsRegistry),
	)

	_, components, err := config.Build(doc, config.Bindings{})
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}

	snapStore, err := setupSnapshots(cliCfg.SnapshotDir, bus, logger)
	if err != nil {
		return err
	}

	for _, c := range components {
		if err := eng.Register(ctx, c); err != nil {
			return fmt.Errorf("register %s: %w", c.Name(), err)
		}
		if snapStore != nil {
			if err := snapStore.Restore(ctx, c.Name(), c.Machine()); err != nil {
				return fmt.Errorf("restore %s: %w", c.Name(), err)
			}
		}
	}

	if err := eng.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}

	if err := fireTriggers(ctx, eng, cliCfg.Triggers); err != nil {
		return err
	}

	// With no triggers to fire the runtime idles until a signal arrives;
	// with triggers it exits once they are handled.
	if len(cliCfg.Triggers) == 0 {
		slog.Info("Running until interrupted")
		<-ctx.Done()
	}

	return shutdown(eng, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting FlowKit",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// startMetricsServer serves the Prometheus endpoint when a port is set.
func startMetricsServer(port int, registry *metric.Registry, logger *slog.Logger) {
	if port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
}

// setupSnapshots wires the snapshot store when a directory is configured.
func setupSnapshots(dir string, bus *eventbus.Bus, logger *slog.Logger) (*snapshot.Store, error) {
	if dir == "" {
		return nil, nil
	}
	backend, err := filestore.New(dir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot directory: %w", err)
	}
	store, err := snapshot.New(backend, snapshot.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := store.Attach(bus); err != nil {
		return nil, err
	}
	return store, nil
}

// fireTriggers handles each component:trigger pair from the command line.
func fireTriggers(ctx context.Context, eng *engine.Engine, triggers []string) error {
	for _, arg := range triggers {
		name, trigger, ok := strings.Cut(arg, ":")
		if !ok || name == "" || trigger == "" {
			return fmt.Errorf("invalid trigger %q, expected component:trigger", arg)
		}

		c, found := eng.Get(name)
		if !found {
			return fmt.Errorf("unknown component %q", name)
		}

		result, err := c.Handle(ctx, trigger, nil)
		if err != nil {
			return fmt.Errorf("fire %s: %w", arg, err)
		}
		slog.Info("Trigger handled",
			"component", name,
			"trigger", trigger,
			"from", result.From,
			"to", result.To)
	}
	return nil
}

// shutdown stops every component within the timeout.
func shutdown(eng *engine.Engine, timeout time.Duration) error {
	slog.Info("Shutting down", "timeout", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := eng.StopAll(ctx); err != nil {
		return fmt.Errorf("stop components: %w", err)
	}
	slog.Info("Shutdown complete")
	return nil
}
