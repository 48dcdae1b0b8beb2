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

package mcp

//go:generate mockgen -destination=mock_mcp.go -package=mcp github.com/carverauto/netrunner/pkg/mcp TaskRunner

import (
	"context"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/results"
)

// TaskRunner is the orchestrator the tools call into. *runner.Runner
// implements it.
type TaskRunner interface {
	Snapshot(ctx context.Context) (*inventory.Snapshot, error)
	Execute(ctx context.Context, kind engine.Kind, filters *models.DeviceFilters, params engine.Params) (results.Aggregated, error)
}
