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

package runner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName            = "netrunner.runner"
	metricRuns           = "netrunner.runs"
	metricDeviceFailures = "netrunner.device.failures"
	metricRunDuration    = "netrunner.run.duration"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	runCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	failureCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	durationHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	runs, err := meter.Int64Counter(
		metricRuns,
		metric.WithDescription("Task executions by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	runCounter = runs

	failures, err := meter.Int64Counter(
		metricDeviceFailures,
		metric.WithDescription("Devices whose task failed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	failureCounter = failures

	hist, err := meter.Float64Histogram(
		metricRunDuration,
		metric.WithDescription("Wall time of one task execution including inventory load"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	durationHistogram = hist
}

func recordRun(ctx context.Context, task, outcome string, failed int, elapsed time.Duration) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	)

	if runCounter != nil {
		runCounter.Add(ctx, 1, attrs)
	}

	if failureCounter != nil && failed > 0 {
		failureCounter.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("task", task)))
	}

	if durationHistogram != nil {
		durationHistogram.Record(ctx, elapsed.Seconds(), attrs)
	}
}
