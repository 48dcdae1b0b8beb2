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

package models

import "strings"

// DeviceFilters selects a subset of the inventory. Empty fields impose no
// constraint; set fields are AND-combined.
type DeviceFilters struct {
	// Hostname matches either the inventory name or the network address.
	Hostname string `json:"hostname,omitempty"`
	Group    string `json:"group,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// IsEmpty reports whether no criterion is set. A nil receiver is empty.
func (f *DeviceFilters) IsEmpty() bool {
	return f == nil || (f.Hostname == "" && f.Group == "" && f.Platform == "")
}

// String renders the set criteria as "key=value" pairs in a stable order.
func (f *DeviceFilters) String() string {
	if f.IsEmpty() {
		return "none"
	}

	parts := make([]string, 0, 3)

	if f.Hostname != "" {
		parts = append(parts, "hostname="+f.Hostname)
	}

	if f.Group != "" {
		parts = append(parts, "group="+f.Group)
	}

	if f.Platform != "" {
		parts = append(parts, "platform="+f.Platform)
	}

	return strings.Join(parts, ", ")
}

// FiltersForDevice is the single-device shorthand used by tools that accept
// a device_name argument.
func FiltersForDevice(name string) *DeviceFilters {
	return &DeviceFilters{Hostname: name}
}
