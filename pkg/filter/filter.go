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

// Package filter narrows an inventory snapshot to the devices a request targets.
package filter

import (
	"fmt"

	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/models"
)

// NoMatchError is returned when at least one criterion was set and no device
// satisfied all of them.
type NoMatchError struct {
	Total    int
	Criteria models.DeviceFilters
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no devices matched filters (%s): 0 devices selected, %d in inventory",
		e.Criteria.String(), e.Total)
}

// Apply returns the devices of snap matching every set criterion of spec,
// sorted by name. A nil or empty spec returns the whole snapshot.
func Apply(snap *inventory.Snapshot, spec *models.DeviceFilters) ([]models.Device, error) {
	all := snap.Devices()
	if all == nil {
		all = []models.Device{}
	}

	if spec.IsEmpty() {
		return all, nil
	}

	matched := make([]models.Device, 0, len(all))

	for i := range all {
		if Matches(&all[i], spec) {
			matched = append(matched, all[i])
		}
	}

	if len(matched) == 0 {
		return nil, &NoMatchError{Total: len(all), Criteria: *spec}
	}

	return matched, nil
}

// Matches reports whether d satisfies every set criterion of spec.
func Matches(d *models.Device, spec *models.DeviceFilters) bool {
	if spec.IsEmpty() {
		return true
	}

	if spec.Hostname != "" && spec.Hostname != d.Name && spec.Hostname != d.Hostname {
		return false
	}

	if spec.Group != "" && !d.InGroup(spec.Group) {
		return false
	}

	if spec.Platform != "" && spec.Platform != d.Platform {
		return false
	}

	return true
}
