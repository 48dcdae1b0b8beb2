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

// Package lifecycle runs long-lived services until a stop signal arrives.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/netrunner/pkg/logger"
)

const defaultStopTimeout = 10 * time.Second

// Service is a component with a blocking Start and a bounded Stop.
type Service interface {
	// Start blocks until the service exits or ctx is cancelled.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures Run.
type ServerOptions struct {
	Service     Service
	StopTimeout time.Duration
	Logger      logger.Logger
}

// Run starts the service and stops it on SIGINT/SIGTERM or when ctx ends.
// A service that exits on its own is not stopped again.
func Run(ctx context.Context, opts *ServerOptions) error {
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- opts.Service.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("service exited: %w", err)
		}

		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	timeout := opts.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()

	if err := opts.Service.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Service returned error during shutdown")
		}
	case <-stopCtx.Done():
		log.Warn().Dur("timeout", timeout).Msg("Service did not exit before stop timeout")
	}

	return nil
}
