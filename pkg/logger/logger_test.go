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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func TestInit(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "info", Debug: true, Output: "discard"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "chatty", Output: "discard"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	require.NoError(t, Init(context.Background(), &Config{Output: "discard"}))

	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestNewIsIndependentOfGlobal(t *testing.T) {
	require.NoError(t, Init(context.Background(), &Config{Level: "error", Output: "discard"}))

	l, err := New(context.Background(), &Config{Level: "trace", Output: "discard"})
	require.NoError(t, err)

	l.SetLevel(zerolog.WarnLevel)
	assert.Equal(t, zerolog.ErrorLevel, GetLogger().GetLevel())
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer

	l := NewWriterLogger(&buf)
	cl := l.WithComponent("runner")
	cl.Info().Str("task", "get_facts").Msg("dispatch")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "runner", line["component"])
	assert.Equal(t, "get_facts", line["task"])
	assert.Equal(t, "dispatch", line["message"])
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_OUTPUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-api-key=abc, tenant = blue")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.Equal(t, "stderr", config.Output)
	assert.Equal(t, defaultServiceName, config.OTel.ServiceName)
	assert.Equal(t, map[string]string{"x-api-key": "abc", "tenant": "blue"}, config.OTel.Headers)
	assert.Equal(t, Duration(5*time.Second), config.OTel.BatchTimeout)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "nanoseconds", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "compound", input: `"1h30m"`, expected: Duration(90 * time.Minute)},
		{name: "bad string", input: `"soon"`, wantErr: true},
		{name: "bad type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestRecordAttributes(t *testing.T) {
	long := strings.Repeat("é", maxAttributeValueLength)

	attrs, clipped := recordAttributes(map[string]interface{}{
		"device": "edge-1",
		"count":  float64(3),
		"ok":     true,
		"blob":   long,
		"groups": []interface{}{"edge", "core"},
		"nil":    nil,
	})

	byKey := make(map[string]otellog.Value, len(attrs))
	keys := make([]string, 0, len(attrs))

	for _, kv := range attrs {
		byKey[kv.Key] = kv.Value
		keys = append(keys, kv.Key)
	}

	assert.Equal(t, []string{"blob", "count", "device", "groups", "nil", "ok"}, keys)
	assert.Equal(t, "edge-1", byKey["device"].AsString())
	assert.InDelta(t, 3.0, byKey["count"].AsFloat64(), 0)
	assert.True(t, byKey["ok"].AsBool())
	assert.Equal(t, `["edge","core"]`, byKey["groups"].AsString())
	assert.True(t, byKey["nil"].Empty())

	blob := byKey["blob"].AsString()
	assert.LessOrEqual(t, len(blob), maxAttributeValueLength)
	assert.True(t, utf8.ValidString(blob))
	assert.True(t, strings.HasSuffix(blob, ellipsis))
	assert.Equal(t, []string{"blob"}, clipped)
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, otellog.SeverityWarn, severityOf("WARNING"))
	assert.Equal(t, otellog.SeverityFatal, severityOf("panic"))
	assert.Equal(t, otellog.SeverityInfo, severityOf("unknown"))
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

type failWriter struct{}

var errWrite = errors.New("write failed")

func (failWriter) Write(_ []byte) (int, error) { return 0, errWrite }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	n, err := NewMultiWriter(&a, &b).Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", a.String())
	assert.Equal(t, "line", b.String())

	_, err = NewMultiWriter(&a, shortWriter{}).Write([]byte("x"))
	require.Error(t, err)

	_, err = NewMultiWriter(failWriter{}, &b).Write([]byte("x"))
	require.ErrorIs(t, err, errWrite)
}

func TestOTelDisabled(t *testing.T) {
	_, err := NewOTELWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)

	_, err = NewOTELWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)

	_, err = InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	tp, err := InitializeTracing(context.Background(), TracingConfig{ServiceName: "netrunner-test"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := GetTracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}
