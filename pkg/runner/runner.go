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

// Package runner executes one task against the devices a filter selects.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/filter"
	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/results"
)

const (
	tracerName = "github.com/carverauto/netrunner/pkg/runner"

	outcomeSuccess = "success"
	outcomeNoMatch = "no_match"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

var (
	// ErrInventoryUnavailable wraps inventory source failures.
	ErrInventoryUnavailable = errors.New("failed to load inventory")
	// ErrCallerTimeout is returned when the caller stops waiting before the
	// fan-out completes. The fan-out itself keeps running.
	ErrCallerTimeout = errors.New("timed out waiting for task results")
)

// Runner joins an inventory source, the filter engine and an automation
// engine. It holds no per-request state and is safe for concurrent use.
type Runner struct {
	source        inventory.Source
	engine        Engine
	events        EventPublisher
	callerTimeout time.Duration
	logger        logger.Logger
	tracer        trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithEvents publishes a run.completed event after every execution.
func WithEvents(p EventPublisher) Option {
	return func(r *Runner) {
		r.events = p
	}
}

// WithCallerTimeout bounds how long Execute waits for the fan-out.
func WithCallerTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.callerTimeout = d
	}
}

// New returns a Runner.
func New(source inventory.Source, eng Engine, log logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.NewTestLogger()
	}

	r := &Runner{
		source: source,
		engine: eng,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Snapshot returns a fresh inventory snapshot.
func (r *Runner) Snapshot(ctx context.Context) (*inventory.Snapshot, error) {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventoryUnavailable, err)
	}

	return snap, nil
}

// Execute loads a fresh snapshot, narrows it with filters and runs kind on
// the selected devices. A *filter.NoMatchError is returned without
// contacting any device. Per-device failures are part of the result.
func (r *Runner) Execute(
	ctx context.Context, kind engine.Kind, filters *models.DeviceFilters, params engine.Params,
) (results.Aggregated, error) {
	if filters == nil {
		filters = &models.DeviceFilters{}
	}

	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "runner.Execute",
		trace.WithAttributes(
			attribute.String("task.kind", string(kind)),
			attribute.String("filters", filters.String()),
		))
	defer span.End()

	if r.callerTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.callerTimeout)
		defer cancel()
	}

	out, targeted, err := r.execute(ctx, kind, filters, params)

	outcome := outcomeSuccess

	var nm *filter.NoMatchError

	switch {
	case err == nil:
	case errors.As(err, &nm):
		outcome = outcomeNoMatch
	case errors.Is(err, ErrCallerTimeout):
		outcome = outcomeTimeout
	default:
		outcome = outcomeError
	}

	failed := out.FailedCount()
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("devices.targeted", targeted),
		attribute.Int("devices.failed", failed),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}

	recordRun(ctx, string(kind), outcome, failed, elapsed)
	r.publish(ctx, kind, filters, targeted, failed, elapsed, err)

	r.logger.Info().
		Str("task", string(kind)).
		Str("filters", filters.String()).
		Int("targeted", targeted).
		Int("failed", failed).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("Task execution finished")

	return out, err
}

func (r *Runner) execute(
	ctx context.Context, kind engine.Kind, filters *models.DeviceFilters, params engine.Params,
) (results.Aggregated, int, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}

	devices, err := filter.Apply(snap, filters)
	if err != nil {
		return nil, 0, err
	}

	raw, err := r.dispatch(ctx, devices, kind, params)
	if err != nil {
		return nil, len(devices), err
	}

	return results.Normalize(raw), len(devices), nil
}

type fanout struct {
	raw engine.AggregatedResult
	err error
}

// dispatch runs the engine on its own goroutine. The engine context is
// detached from the caller so a caller timeout only stops the wait.
func (r *Runner) dispatch(
	ctx context.Context, devices []models.Device, kind engine.Kind, params engine.Params,
) (engine.AggregatedResult, error) {
	done := make(chan fanout, 1)
	detached := context.WithoutCancel(ctx)

	go func() {
		raw, err := r.engine.Run(detached, devices, kind, params)
		done <- fanout{raw: raw, err: err}
	}()

	select {
	case f := <-done:
		return f.raw, f.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCallerTimeout, ctx.Err())
	}
}

// Run is the tool-facing form of Execute: it returns either the aggregated
// result or an {"error": msg} envelope.
func (r *Runner) Run(
	ctx context.Context, kind engine.Kind, filters *models.DeviceFilters, params engine.Params,
) interface{} {
	out, err := r.Execute(ctx, kind, filters, params)
	if err != nil {
		return results.NewErrorEnvelope(err.Error())
	}

	return out
}

func (r *Runner) publish(
	ctx context.Context, kind engine.Kind, filters *models.DeviceFilters,
	targeted, failed int, elapsed time.Duration, runErr error,
) {
	if r.events == nil {
		return
	}

	data := &models.RunCompletedData{
		RunID:      uuid.New().String(),
		Task:       string(kind),
		Filters:    filters,
		Targeted:   targeted,
		Failed:     failed,
		DurationMS: elapsed.Milliseconds(),
	}

	if runErr != nil {
		data.Error = runErr.Error()
	}

	if err := r.events.PublishRunCompleted(context.WithoutCancel(ctx), data); err != nil {
		r.logger.Warn().Err(err).Str("run_id", data.RunID).Msg("Failed to publish run event")
	}
}
