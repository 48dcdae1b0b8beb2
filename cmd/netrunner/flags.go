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

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

var errBadParam = errors.New("parameters must be key=value")

func addFilterFlags(fs *pflag.FlagSet, f *models.DeviceFilters) {
	fs.StringVar(&f.Hostname, "hostname", "", "Select the device with this name or address")
	fs.StringVar(&f.Group, "group", "", "Select devices in this group")
	fs.StringVar(&f.Platform, "platform", "", "Select devices with this platform")
}

// parseParams turns key=value pairs into task parameters. Values stay
// strings; the engine coerces them per key. Repeated commands become a list.
func parseParams(pairs, commands []string) (engine.Params, error) {
	params := make(engine.Params, len(pairs)+1)

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")

		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", errBadParam, pair)
		}

		params[key] = value
	}

	if len(commands) > 0 {
		params["commands"] = commands
	}

	return params, nil
}
