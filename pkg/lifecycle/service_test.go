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

package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/logger"
)

type fakeService struct {
	startErr error
	stopped  atomic.Bool
}

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}

	<-ctx.Done()

	return ctx.Err()
}

func (f *fakeService) Stop(_ context.Context) error {
	f.stopped.Store(true)
	return nil
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := &fakeService{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Run(ctx, &ServerOptions{Service: svc, Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	assert.True(t, svc.stopped.Load())
}

func TestRunReturnsStartError(t *testing.T) {
	boom := errors.New("listen failed")
	svc := &fakeService{startErr: boom}

	err := Run(context.Background(), &ServerOptions{Service: svc, Logger: logger.NewTestLogger()})
	require.ErrorIs(t, err, boom)
	assert.False(t, svc.stopped.Load())
}

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger(context.Background(), "mcp", &logger.Config{Output: "discard"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
