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

//go:generate mockgen -destination=mock_runner.go -package=runner github.com/carverauto/netrunner/pkg/runner Engine,EventPublisher

package runner

import (
	"context"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

// Engine fans a task out across devices. *engine.Engine implements it.
type Engine interface {
	Run(ctx context.Context, devices []models.Device, kind engine.Kind, params engine.Params) (engine.AggregatedResult, error)
}

// EventPublisher announces completed runs. *natsutil.EventPublisher
// implements it.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, data *models.RunCompletedData) error
}
