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

package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/models"
)

func testSnapshot() *inventory.Snapshot {
	return inventory.NewSnapshot(
		models.Device{Name: "R1", Hostname: "192.0.2.1", Platform: "ios", Groups: []string{"edge"}},
		models.Device{Name: "R2", Hostname: "192.0.2.2", Platform: "nxos", Groups: []string{"core"}},
		models.Device{Name: "R3", Hostname: "192.0.2.3", Platform: "ios", Groups: []string{"core", "lab"}},
	)
}

func names(devices []models.Device) []string {
	out := make([]string, 0, len(devices))
	for i := range devices {
		out = append(out, devices[i].Name)
	}

	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		spec *models.DeviceFilters
		want []string
	}{
		{name: "nil spec", spec: nil, want: []string{"R1", "R2", "R3"}},
		{name: "empty spec", spec: &models.DeviceFilters{}, want: []string{"R1", "R2", "R3"}},
		{name: "group", spec: &models.DeviceFilters{Group: "core"}, want: []string{"R2", "R3"}},
		{name: "platform", spec: &models.DeviceFilters{Platform: "ios"}, want: []string{"R1", "R3"}},
		{name: "group and platform", spec: &models.DeviceFilters{Group: "core", Platform: "ios"}, want: []string{"R3"}},
		{name: "hostname by name", spec: &models.DeviceFilters{Hostname: "R2"}, want: []string{"R2"}},
		{name: "hostname by address", spec: &models.DeviceFilters{Hostname: "192.0.2.2"}, want: []string{"R2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(testSnapshot(), tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestApplyNoMatch(t *testing.T) {
	tests := []struct {
		name string
		spec *models.DeviceFilters
	}{
		{name: "unknown group", spec: &models.DeviceFilters{Group: "dmz"}},
		{name: "partial name", spec: &models.DeviceFilters{Hostname: "R"}},
		{name: "platform case differs", spec: &models.DeviceFilters{Platform: "IOS"}},
		{name: "criteria disagree", spec: &models.DeviceFilters{Group: "edge", Platform: "nxos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(testSnapshot(), tt.spec)
			require.Error(t, err)
			assert.Nil(t, got)

			var nm *NoMatchError
			require.True(t, errors.As(err, &nm))
			assert.Equal(t, 3, nm.Total)
			assert.Equal(t, *tt.spec, nm.Criteria)
			assert.Contains(t, err.Error(), "0 devices")
			assert.Contains(t, err.Error(), "3 in inventory")
		})
	}
}

func TestApplyEmptySnapshot(t *testing.T) {
	got, err := Apply(inventory.NewSnapshot(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Apply(nil, &models.DeviceFilters{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Apply(inventory.NewSnapshot(), &models.DeviceFilters{Group: "edge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 in inventory")
}

func TestApplyIsIdempotent(t *testing.T) {
	snap := testSnapshot()
	spec := &models.DeviceFilters{Platform: "ios"}

	first, err := Apply(snap, spec)
	require.NoError(t, err)

	second, err := Apply(snap, spec)
	require.NoError(t, err)

	assert.Equal(t, names(first), names(second))
	assert.Equal(t, 3, snap.Len())
}

func TestHostnameMatchesNameOrAddress(t *testing.T) {
	snap := testSnapshot()

	byName, err := Apply(snap, &models.DeviceFilters{Hostname: "R1"})
	require.NoError(t, err)

	byAddr, err := Apply(snap, &models.DeviceFilters{Hostname: "192.0.2.1"})
	require.NoError(t, err)

	require.Len(t, byName, 1)
	assert.Equal(t, names(byName), names(byAddr))
}

func TestNoMatchErrorMessage(t *testing.T) {
	err := &NoMatchError{Total: 2, Criteria: models.DeviceFilters{Group: "dmz"}}

	assert.Equal(t, "no devices matched filters (group=dmz): 0 devices selected, 2 in inventory", err.Error())
}
