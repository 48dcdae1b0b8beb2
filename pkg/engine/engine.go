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

// Package engine fans one task out across a set of devices and collects a
// result for every device, failed or not.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	defaultWorkers       = 20
	defaultDeviceTimeout = 30 * time.Second
	tracerName           = "github.com/carverauto/netrunner/pkg/engine"
)

// Config sizes the worker pool and bounds each device task.
type Config struct {
	Workers       int
	DeviceTimeout time.Duration
}

// Engine runs registered task handlers across devices.
type Engine struct {
	cfg      Config
	mu       sync.RWMutex
	handlers map[Kind]Handler
	logger   logger.Logger
	tracer   trace.Tracer
}

// New returns an Engine with no handlers registered.
func New(cfg Config, log logger.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	if cfg.DeviceTimeout <= 0 {
		cfg.DeviceTimeout = defaultDeviceTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Engine{
		cfg:      cfg,
		handlers: make(map[Kind]Handler),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Register installs the handler for kind, replacing any previous one.
func (e *Engine) Register(kind Kind, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTask, string(kind))
	}

	if h == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, kind)
	}

	e.mu.Lock()
	e.handlers[kind] = h
	e.mu.Unlock()

	return nil
}

func (e *Engine) handler(kind Kind) (Handler, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, string(kind))
	}

	e.mu.RLock()
	h, ok := e.handlers[kind]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, kind)
	}

	return h, nil
}

// Run executes kind on every device and returns one MultiResult per device.
// Task and parameter errors are returned before any device is contacted;
// per-device failures are recorded in the result, never returned.
func (e *Engine) Run(ctx context.Context, devices []models.Device, kind Kind, params Params) (AggregatedResult, error) {
	h, err := e.handler(kind)
	if err != nil {
		return nil, err
	}

	if params == nil {
		params = Params{}
	}

	if err := kind.ValidateParams(params); err != nil {
		return nil, err
	}

	results := make(AggregatedResult, len(devices))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(e.cfg.Workers)

	start := time.Now()

	for i := range devices {
		device := devices[i]

		g.Go(func() error {
			mr := e.runDevice(ctx, &device, kind, h, params)

			mu.Lock()
			results[device.Name] = mr
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	e.logger.Debug().
		Str("task", string(kind)).
		Int("devices", len(devices)).
		Int("failed", len(results.FailedHosts())).
		Dur("elapsed", time.Since(start)).
		Msg("Task fan-out completed")

	return results, nil
}

type outcome struct {
	value     interface{}
	err       error
	traceback string
}

func (e *Engine) runDevice(ctx context.Context, device *models.Device, kind Kind, h Handler, params Params) MultiResult {
	ctx, span := e.tracer.Start(ctx, "engine.device",
		trace.WithAttributes(
			attribute.String("device.name", device.Name),
			attribute.String("device.platform", device.Platform),
			attribute.String("task.kind", string(kind)),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.DeviceTimeout)
	defer cancel()

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{
					err:       fmt.Errorf("%w: %v", errTaskPanicked, r),
					traceback: string(debug.Stack()),
				}
			}
		}()

		v, err := h(ctx, device, params)
		done <- outcome{value: v, err: err}
	}()

	var out outcome

	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w after %s: %w", errDeviceTimeout, e.cfg.DeviceTimeout, out.err)
	}

	mr := e.toMultiResult(device, kind, &out)

	if mr.Failed() {
		span.SetStatus(codes.Error, "task failed")

		if out.err != nil {
			span.RecordError(out.err)
		}
	}

	return mr
}

func (e *Engine) toMultiResult(device *models.Device, kind Kind, out *outcome) MultiResult {
	if out.err != nil {
		msg := out.err.Error()
		if msg == "" {
			msg = "task failed"
		}

		e.logger.Warn().
			Str("device", device.Name).
			Str("task", string(kind)).
			Err(out.err).
			Msg("Task failed on device")

		return MultiResult{{
			Name:      string(kind),
			Host:      device.Name,
			Failed:    true,
			Exception: msg,
			Traceback: out.traceback,
		}}
	}

	if subs, ok := out.value.(SubResults); ok {
		mr := make(MultiResult, 0, len(subs))

		for _, r := range subs {
			if r.Name == "" {
				r.Name = string(kind)
			}

			r.Host = device.Name
			mr = append(mr, r)
		}

		return mr
	}

	return MultiResult{{
		Name:   string(kind),
		Host:   device.Name,
		Result: out.value,
	}}
}
