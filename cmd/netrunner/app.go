/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/netrunner/pkg/config"
	"github.com/carverauto/netrunner/pkg/drivers"
	"github.com/carverauto/netrunner/pkg/drivers/snmp"
	"github.com/carverauto/netrunner/pkg/drivers/ssh"
	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/lifecycle"
	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/natsutil"
	"github.com/carverauto/netrunner/pkg/runner"
	"github.com/carverauto/netrunner/pkg/version"
)

const (
	serviceName     = "netrunner"
	shutdownTimeout = 10 * time.Second
)

// app holds the wired runtime. close releases everything opened by
// newApp in reverse order.
type app struct {
	cfg    *models.ServiceConfig
	logger logger.Logger
	source inventory.Source
	runner *runner.Runner

	closers []func(ctx context.Context) error
}

func loadConfig(ctx context.Context, path string) (*models.ServiceConfig, error) {
	var cfg models.ServiceConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

func newApp(ctx context.Context, cfg *models.ServiceConfig) (*app, error) {
	if err := lifecycle.InitializeLogger(ctx, cfg.Logging); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: component(serviceName)}

	if err := a.wire(ctx); err != nil {
		a.close()

		return nil, err
	}

	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	if err := a.initTelemetry(ctx); err != nil {
		return err
	}

	source, err := a.newSource(ctx)
	if err != nil {
		return err
	}

	a.source = source

	eng := engine.New(engine.Config{
		Workers:       cfg.Engine.Workers,
		DeviceTimeout: time.Duration(cfg.Engine.DeviceTimeout),
	}, component("engine"))

	if err := drivers.RegisterAll(eng, driverOptions(cfg), component("drivers")); err != nil {
		return fmt.Errorf("failed to register drivers: %w", err)
	}

	opts := []runner.Option{runner.WithCallerTimeout(time.Duration(cfg.Runner.CallerTimeout))}

	if cfg.NATS != nil {
		events, nc, err := natsutil.Connect(ctx, cfg.NATS, component("events"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		a.closers = append(a.closers, func(context.Context) error {
			return nc.Drain()
		})

		opts = append(opts, runner.WithEvents(events))
	}

	a.runner = runner.New(a.source, eng, component("runner"), opts...)

	return nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	tp, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		Logger:         a.logger,
		OTel:           a.cfg.Tracing,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.closers = append(a.closers, tp.Shutdown)

	mp, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           a.cfg.Tracing,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		a.logger.Debug().Msg("Metrics export disabled")
	case err != nil:
		return fmt.Errorf("failed to initialize metrics: %w", err)
	default:
		a.closers = append(a.closers, mp.Shutdown)
	}

	return nil
}

func (a *app) newSource(ctx context.Context) (inventory.Source, error) {
	log := component("inventory")

	if a.cfg.Inventory.Source != models.InventorySourcePostgres {
		return inventory.NewFileSource(&a.cfg.Inventory, log)
	}

	pool, err := inventory.NewPool(ctx, a.cfg.Inventory.Postgres, log)
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	return inventory.NewPostgresSource(pool, a.cfg.Inventory.Postgres.Table, log), nil
}

func component(name string) logger.Logger {
	return logger.FromZerolog(logger.WithComponent(name))
}

func driverOptions(cfg *models.ServiceConfig) drivers.Options {
	return drivers.Options{
		SNMP: snmp.Options{
			Timeout: time.Duration(cfg.Drivers.SNMPTimeout),
			Retries: cfg.Drivers.SNMPRetries,
		},
		SSH: ssh.Options{
			Timeout:        time.Duration(cfg.Drivers.SSHTimeout),
			KnownHostsFile: cfg.Drivers.KnownHostsFile,
		},
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Shutdown step failed")
		}
	}

	a.closers = nil

	if err := lifecycle.ShutdownLogger(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to shut down logger")
	}
}
