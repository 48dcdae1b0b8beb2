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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//nolint:gochecknoglobals // process-wide logger used by cmd entry points
var (
	globalLogger zerolog.Logger
	globalMu     sync.RWMutex
)

type Config struct {
	Level      string     `json:"level" yaml:"level" toml:"level"`
	Debug      bool       `json:"debug" yaml:"debug" toml:"debug"`
	Output     string     `json:"output" yaml:"output" toml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format" toml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel" toml:"otel"`
}

func init() {
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init replaces the process-wide logger. When OTel export is enabled the
// console output is teed into an OTLP log writer.
func Init(ctx context.Context, config *Config) error {
	zl, err := build(ctx, config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalLogger = zl
	log.Logger = zl
	globalMu.Unlock()

	return nil
}

// New returns an independent logger instance. It does not touch the global.
func New(ctx context.Context, config *Config) (Logger, error) {
	zl, err := build(ctx, config)
	if err != nil {
		return nil, err
	}

	return &instance{logger: zl}, nil
}

func build(ctx context.Context, config *Config) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := parseLevel(config)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	output := outputFor(config.Output)

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return zerolog.Logger{}, err
		}

		output = NewMultiWriter(output, otelWriter)
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func parseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

func outputFor(name string) io.Writer {
	switch name {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}

func SetLevel(level zerolog.Level) {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

func SetDebug(debug bool) {
	if debug {
		SetLevel(zerolog.DebugLevel)
	} else {
		SetLevel(zerolog.InfoLevel)
	}
}

func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return globalLogger
}

// Global returns the process-wide logger behind the Logger interface.
func Global() Logger {
	return &instance{logger: GetLogger()}
}

func Debug() *zerolog.Event {
	l := GetLogger()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := GetLogger()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := GetLogger()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := GetLogger()
	return l.Error()
}

func Fatal() *zerolog.Event {
	l := GetLogger()
	return l.Fatal()
}

func WithComponent(component string) zerolog.Logger {
	return GetLogger().With().Str("component", component).Logger()
}

// Shutdown flushes the OTel log and metric pipelines.
func Shutdown() error {
	return ShutdownOTEL()
}

// instance implements Logger over a private zerolog.Logger.
type instance struct {
	logger zerolog.Logger
}

func (l *instance) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *instance) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *instance) Info() *zerolog.Event  { return l.logger.Info() }
func (l *instance) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *instance) Error() *zerolog.Event { return l.logger.Error() }
func (l *instance) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *instance) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *instance) With() zerolog.Context { return l.logger.With() }

func (l *instance) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *instance) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.logger.With().Fields(fields).Logger()
}

func (l *instance) SetLevel(level zerolog.Level) { l.logger = l.logger.Level(level) }

func (l *instance) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// FromZerolog wraps an existing zerolog.Logger, e.g. a component logger.
func FromZerolog(zl zerolog.Logger) Logger {
	return &instance{logger: zl}
}
