package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/engine"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/registry"
	"github.com/sqewdb/sqew/internal/store"
)

// app bundles every long-lived component a command needs, opened fresh
// for each CLI invocation and for the server process alike.
type app struct {
	cfg      *config.Config
	clock    clock.Clock
	store    *store.Store
	registry *registry.Registry
	engine   *engine.Engine
	metrics  metrics.Service
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.DBPath, cfg.BusyTimeoutMs)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c := clock.New()
	m := metrics.New(true)
	reg := registry.New(st, c)
	eng := engine.New(st, reg, c, m)

	return &app{cfg: cfg, clock: c, store: st, registry: reg, engine: eng, metrics: m}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close store")
	}
}

// exitWithErr prints "kind: detail" and exits with code 1 for operational
// errors, 2 for usage errors.
func exitWithErr(err error, usage bool) {
	log.Error().Err(err).Msg("command failed")
	fmt.Fprintln(os.Stderr, err.Error())
	if usage {
		os.Exit(2)
	}
	os.Exit(1)
}
