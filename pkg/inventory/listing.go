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

package inventory

import (
	"sort"
	"strings"

	"github.com/carverauto/netrunner/pkg/models"
)

//nolint:gochecknoglobals // fixed redaction list
var sensitiveKeys = map[string]struct{}{
	"username": {},
	"password": {},
	"secret":   {},
}

// DeviceSummary is the listing form of a device.
type DeviceSummary struct {
	Name     string                 `json:"name"`
	Hostname string                 `json:"hostname"`
	Platform string                 `json:"platform"`
	Groups   []string               `json:"groups"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Listing is the result of the list_devices tool.
type Listing struct {
	TotalDevices int             `json:"total_devices"`
	Devices      []DeviceSummary `json:"devices"`
}

// GroupInfo lists the members of one group.
type GroupInfo struct {
	Count   int      `json:"count"`
	Members []string `json:"members"`
}

// ListDevices summarizes devices in the given order. With details the
// sanitized data map is included.
func ListDevices(devices []models.Device, details bool) Listing {
	out := Listing{
		TotalDevices: len(devices),
		Devices:      make([]DeviceSummary, 0, len(devices)),
	}

	for i := range devices {
		d := &devices[i]

		summary := DeviceSummary{
			Name:     d.Name,
			Hostname: d.Hostname,
			Platform: d.Platform,
			Groups:   d.Groups,
		}

		if details {
			summary.Data = Sanitize(d.Data)
		}

		out.Devices = append(out.Devices, summary)
	}

	return out
}

// GroupMembers maps every known group to its direct members, sorted.
func GroupMembers(snap *Snapshot) map[string]GroupInfo {
	out := make(map[string]GroupInfo, len(snap.Groups))

	for name := range snap.Groups {
		out[name] = GroupInfo{Members: []string{}}
	}

	for _, d := range snap.Hosts {
		for _, g := range d.Groups {
			info := out[g]
			info.Members = append(info.Members, d.Name)
			out[g] = info
		}
	}

	for name, info := range out {
		sort.Strings(info.Members)
		info.Count = len(info.Members)
		out[name] = info
	}

	return out
}

// Sanitize returns a copy of data without credential keys, at any depth.
func Sanitize(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}

	out := make(map[string]interface{}, len(data))

	for k, v := range data {
		if _, drop := sensitiveKeys[strings.ToLower(k)]; drop {
			continue
		}

		out[k] = sanitizeValue(v)
	}

	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return Sanitize(typed)
	case []interface{}:
		items := make([]interface{}, len(typed))
		for i, item := range typed {
			items[i] = sanitizeValue(item)
		}

		return items
	default:
		return v
	}
}
