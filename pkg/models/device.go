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

import "slices"

// Device represents a network device in the inventory.
type Device struct {
	Name     string                 `json:"name" yaml:"name"`
	Hostname string                 `json:"hostname" yaml:"hostname"`
	Platform string                 `json:"platform,omitempty" yaml:"platform,omitempty"`
	Groups   []string               `json:"groups" yaml:"groups"`
	Port     int                    `json:"port,omitempty" yaml:"port,omitempty"`
	Username string                 `json:"-" yaml:"username,omitempty"`
	Password string                 `json:"-" yaml:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// InGroup reports whether the device is a member of the named group.
func (d *Device) InGroup(group string) bool {
	return slices.Contains(d.Groups, group)
}

// DataString returns a string value from the device data map, or def when
// the key is missing or not a string.
func (d *Device) DataString(key, def string) string {
	if d.Data == nil {
		return def
	}

	v, ok := d.Data[key].(string)
	if !ok || v == "" {
		return def
	}

	return v
}

// DataInt returns an integer value from the device data map. YAML and JSON
// decoders disagree on numeric types, so both int and float64 are accepted.
func (d *Device) DataInt(key string, def int) int {
	if d.Data == nil {
		return def
	}

	switch v := d.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
