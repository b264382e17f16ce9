package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gchickering21/downballot/internal/bridge"
	"github.com/gchickering21/downballot/internal/config"
	"github.com/gchickering21/downballot/internal/discovery"
	"github.com/gchickering21/downballot/internal/fetch"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/snapshot"
	"github.com/gchickering21/downballot/internal/sources"
)

// app bundles the shared long-lived pieces every command needs
type app struct {
	Config   *config.Config
	Registry *sources.Registry
	Bridge   *bridge.Bridge
	DB       *snapshot.DB
	Store    *snapshot.Store
	Router   *sources.Router
}

var (
	appOnce   sync.Once
	sharedApp *app
	appErr    error
)

// getApp returns the shared application wiring. Everything is lazily
// initialized on first use so that commands which never touch the snapshot
// database (config show, version) stay cheap.
func getApp(logger *logging.Logger) (*app, error) {
	appOnce.Do(func() {
		cfg, err := config.LoadConfig(dataDirFlag)
		if err != nil {
			appErr = fmt.Errorf("failed to load config: %w", err)
			return
		}

		overrides, err := config.LoadSourceOverrides(filepath.Join(cfg.DataDir, "sources.yml"))
		if err != nil {
			appErr = fmt.Errorf("failed to load source overrides: %w", err)
			return
		}
		registry := sources.NewRegistry(overrides)

		descriptorPath := cfg.Bridge.DescriptorPath
		if descriptorPath == "" {
			descriptorPath = filepath.Join(cfg.DataDir, "bridge.toml")
		}
		descriptor, err := bridge.LoadDescriptor(descriptorPath)
		if err != nil {
			appErr = fmt.Errorf("failed to load bridge descriptor: %w", err)
			return
		}
		br := bridge.Shared(descriptor, logger)

		db, err := snapshot.Open(cfg.DataDir, logger)
		if err != nil {
			appErr = fmt.Errorf("failed to open snapshot database: %w", err)
			return
		}
		store := snapshot.NewStore(db, logger)

		discoverer := discovery.NewService(cfg.Transport, logger)
		client := fetch.NewClient(cfg.Transport)
		fetcher := fetch.NewOrchestrator(client, br, cfg.Bridge.Environment, logger)

		sharedApp = &app{
			Config:   cfg,
			Registry: registry,
			Bridge:   br,
			DB:       db,
			Store:    store,
			Router:   sources.NewRouter(registry, discoverer, fetcher, store, logger),
		}
	})

	return sharedApp, appErr
}

// mustGetApp returns the shared application wiring or exits on error.
func mustGetApp(logger *logging.Logger) *app {
	a, err := getApp(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified output format. Human output
// keeps logs on stderr so piped JSON stays clean.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.InfoLevel
	if env := os.Getenv("DOWNBALLOT_LOG_LEVEL"); env != "" {
		level = logging.ParseLevel(env)
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
		Output: os.Stderr,
	})
}
