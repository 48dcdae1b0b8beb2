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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carverauto/netrunner/pkg/models"
)

// Targeting is embedded by every tool that selects devices.
type Targeting struct {
	Filters    *models.DeviceFilters `json:"filters,omitempty"`
	DeviceName string                `json:"device_name,omitempty"`
}

// resolve folds device_name into a filter. Setting both is an error.
func (t *Targeting) resolve() (*models.DeviceFilters, error) {
	if t.DeviceName != "" && !t.Filters.IsEmpty() {
		return nil, fmt.Errorf("%w: cannot specify both 'filters' and 'device_name'", errInvalidArguments)
	}

	if t.DeviceName != "" {
		return models.FiltersForDevice(t.DeviceName), nil
	}

	return t.Filters, nil
}

// decodeArgs strictly decodes tool arguments; unknown fields are rejected.
func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if err := decodeStrict(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidArguments, err)
	}

	return nil
}

func decodeStrict(raw json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	return dec.Decode(dst)
}

// checkCommands rejects an empty list or blank entries.
func checkCommands(cmds []string) error {
	if len(cmds) == 0 {
		return fmt.Errorf("%w: commands list cannot be empty", errInvalidArguments)
	}

	for _, c := range cmds {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: all commands must be non-empty strings", errInvalidArguments)
		}
	}

	return nil
}

func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}

	if len(required) > 0 {
		s["required"] = required
	}

	return s
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func stringList(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

func filtersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Device filters; criteria are AND-combined",
		"properties": map[string]interface{}{
			"hostname": prop("string", "Inventory name or network address"),
			"group":    prop("string", "Group membership"),
			"platform": prop("string", "Platform, e.g. ios"),
		},
		"additionalProperties": false,
	}
}

// targeted adds filters and device_name to a property set.
func targeted(props map[string]interface{}) map[string]interface{} {
	props["filters"] = filtersSchema()
	props["device_name"] = prop("string", "Single device name (alternative to filters)")

	return props
}
