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

//go:generate mockgen -destination=mock_inventory.go -package=inventory github.com/carverauto/netrunner/pkg/inventory Source

// Package inventory loads device snapshots from YAML files or Postgres.
package inventory

import (
	"context"
	"sort"

	"github.com/carverauto/netrunner/pkg/models"
)

// Source produces a fresh inventory snapshot on every call. Implementations
// must be safe for concurrent use.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Group is a named inventory group.
type Group struct {
	Name    string                 `json:"name"`
	Parents []string               `json:"groups,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Snapshot is a request-scoped, read-only view of the inventory.
type Snapshot struct {
	Hosts  map[string]models.Device
	Groups map[string]Group
}

// Len returns the number of hosts.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Hosts)
}

// Devices returns every host sorted by name.
func (s *Snapshot) Devices() []models.Device {
	if s == nil {
		return nil
	}

	out := make([]models.Device, 0, len(s.Hosts))
	for _, d := range s.Hosts {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// NewSnapshot builds a snapshot from a device list. Groups are derived from
// host memberships.
func NewSnapshot(devices ...models.Device) *Snapshot {
	s := &Snapshot{
		Hosts:  make(map[string]models.Device, len(devices)),
		Groups: make(map[string]Group),
	}

	for _, d := range devices {
		s.Hosts[d.Name] = d

		for _, g := range d.Groups {
			if _, ok := s.Groups[g]; !ok {
				s.Groups[g] = Group{Name: g}
			}
		}
	}

	return s
}
